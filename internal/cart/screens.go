package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Screens tracks the open cart screen of each session.
type Screens struct {
	svc      Service
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	screens map[string]*Screen
}

// NewScreens creates an empty registry whose screens refresh at interval.
func NewScreens(svc Service, interval time.Duration, logger zerolog.Logger) *Screens {
	return &Screens{
		svc:      svc,
		interval: interval,
		logger:   logger,
		screens:  make(map[string]*Screen),
	}
}

// Open returns the screen of a session, refreshed. A screen is created when
// none is open or when the session's identity changed.
func (r *Screens) Open(ctx context.Context, sessionToken string, identity *model.Identity) (*Screen, *View, error) {
	if existing, ok := r.Get(sessionToken); ok {
		if sameIdentity(existing.Identity(), identity) {
			view, err := existing.Refresh(ctx)
			if err == nil {
				return existing, view, nil
			}
			if !errors.Is(err, model.ErrScreenClosed) {
				return nil, nil, err
			}
		}
		r.Close(sessionToken)
	}

	screen, err := OpenScreen(ctx, r.svc, identity, r.interval, r.logger)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	if previous, ok := r.screens[sessionToken]; ok {
		// Lost a race with a concurrent Open; keep the registered screen.
		r.mu.Unlock()
		screen.Close()
		return previous, previous.View(), nil
	}
	r.screens[sessionToken] = screen
	r.mu.Unlock()

	r.logger.Debug().Int("open_screens", r.Len()).Msg("cart screen opened")
	return screen, screen.View(), nil
}

// Get returns the open screen of a session.
func (r *Screens) Get(sessionToken string) (*Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.screens[sessionToken]
	return s, ok
}

// Close closes and forgets the screen of a session, if any.
func (r *Screens) Close(sessionToken string) {
	r.mu.Lock()
	s, ok := r.screens[sessionToken]
	delete(r.screens, sessionToken)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

// CloseAll closes every open screen.
func (r *Screens) CloseAll() {
	r.mu.Lock()
	screens := r.screens
	r.screens = make(map[string]*Screen)
	r.mu.Unlock()

	for _, s := range screens {
		s.Close()
	}
}

// Len returns the number of open screens.
func (r *Screens) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

func sameIdentity(a, b *model.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Email == b.Email
}
