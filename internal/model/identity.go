package model

import "time"

// Identity is the signed-in user a session belongs to.
type Identity struct {
	Email  string `json:"email" db:"email"`
	Name   string `json:"name" db:"name"`
	Role   int    `json:"role" db:"role"`
	UserID string `json:"userId" db:"user_id"`
}

// Session is a persisted identity keyed by an opaque token.
type Session struct {
	Token     string    `json:"token" db:"token"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	LastSeen  time.Time `json:"lastSeen" db:"last_seen"`
}
