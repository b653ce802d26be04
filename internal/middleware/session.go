package middleware

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/model"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// SessionHeader carries the opaque session token.
const SessionHeader = "X-Session-Token"

// SessionResolver restores the identity behind a session token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.Identity, error)
}

type sessionKey struct{}

type sessionValue struct {
	token    string
	identity *model.Identity
}

// Session resolves the X-Session-Token header. Requests without a valid
// session continue anonymously; handlers decide whether they need one.
func Session(resolver SessionResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(SessionHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.Resolve(r.Context(), token)
			switch {
			case errors.Is(err, model.ErrUnauthenticated):
				next.ServeHTTP(w, r)
				return
			case err != nil:
				logger.Error().
					Err(err).
					Str("path", r.URL.Path).
					Str("request_id", chimw.GetReqID(r.Context())).
					Msg("failed to resolve session")
				writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "session store unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), token, identity)))
		})
	}
}

// WithSession returns a context carrying a resolved session.
func WithSession(ctx context.Context, token string, identity *model.Identity) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionValue{token: token, identity: identity})
}

// IdentityFrom returns the signed-in identity, or nil.
func IdentityFrom(ctx context.Context) *model.Identity {
	v, _ := ctx.Value(sessionKey{}).(sessionValue)
	return v.identity
}

// SessionTokenFrom returns the token of the resolved session, or "".
func SessionTokenFrom(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey{}).(sessionValue)
	return v.token
}
