package cart

import (
	"context"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Screen holds the view of an open cart screen and keeps it fresh with a
// periodic refresh. Mutations are serialised; a refresh that started before a
// mutation committed is discarded. After Close no result is applied.
type Screen struct {
	svc      Service
	identity *model.Identity
	interval time.Duration
	logger   zerolog.Logger

	// opMu serialises mutations against the store.
	opMu sync.Mutex

	mu      sync.Mutex
	view    *View
	version uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenScreen loads the cart and starts the refresh loop. A non-positive
// interval disables periodic refresh.
func OpenScreen(ctx context.Context, svc Service, identity *model.Identity, interval time.Duration, logger zerolog.Logger) (*Screen, error) {
	view, err := svc.Load(ctx, identity)
	if err != nil {
		return nil, err
	}

	screenCtx, cancel := context.WithCancel(context.Background())
	s := &Screen{
		svc:      svc,
		identity: identity,
		interval: interval,
		logger:   logger.With().Str("component", "cart-screen").Logger(),
		view:     view,
		ctx:      screenCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if interval > 0 {
		go s.run()
	} else {
		close(s.done)
	}

	return s, nil
}

// Identity returns the identity the screen was opened for.
func (s *Screen) Identity() *model.Identity {
	return s.identity
}

// View returns a copy of the current view.
func (s *Screen) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Clone()
}

// Refresh reloads the cart and applies the result unless a mutation
// committed in the meantime or the screen was closed. The current view is
// returned either way.
func (s *Screen) Refresh(ctx context.Context) (*View, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, model.ErrScreenClosed
	}
	started := s.version
	s.mu.Unlock()

	fresh, err := s.svc.Load(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Debug().Msg("discarding refresh for closed screen")
		return nil, model.ErrScreenClosed
	}
	if s.version != started {
		s.logger.Debug().Msg("discarding refresh overtaken by a mutation")
		return s.view.Clone(), nil
	}

	fresh.retainPending(s.view.Pending)
	s.view = fresh
	s.version++
	return s.view.Clone(), nil
}

// Add puts a product into the cart and reloads the view.
func (s *Screen) Add(ctx context.Context, req model.AddToCartRequest) (*View, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.svc.Add(ctx, s.identity, req); err != nil {
		return nil, err
	}

	fresh, err := s.svc.Load(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	return s.commit(func(current *View) *View {
		fresh.retainPending(current.Pending)
		return fresh
	})
}

// UpdateQuantity changes the quantity of a line.
func (s *Screen) UpdateQuantity(ctx context.Context, lineID string, requested int) (*QuantityUpdate, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.svc.UpdateQuantity(ctx, s.identity, s.View(), lineID, requested)
	if err != nil {
		return nil, err
	}

	view, err := s.commit(func(current *View) *View {
		result.View.retainPending(current.Pending)
		return result.View
	})
	if err != nil {
		return nil, err
	}
	result.View = view
	return result, nil
}

// ProposeRemove registers a removal awaiting confirmation.
func (s *Screen) ProposeRemove(lineID string) (PendingAction, error) {
	return s.propose(func(v *View) (PendingAction, error) { return v.ProposeRemove(lineID) })
}

// ProposeClear registers a clear awaiting confirmation.
func (s *Screen) ProposeClear() (PendingAction, error) {
	return s.propose(func(v *View) (PendingAction, error) { return v.ProposeClear() })
}

func (s *Screen) propose(fn func(v *View) (PendingAction, error)) (PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return PendingAction{}, model.ErrScreenClosed
	}
	next := s.view.Clone()
	action, err := fn(next)
	if err != nil {
		return PendingAction{}, err
	}
	s.view = next
	return action, nil
}

// Dismiss drops a pending action.
func (s *Screen) Dismiss(token string) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, model.ErrScreenClosed
	}
	next := s.view.Clone()
	if err := next.Dismiss(token); err != nil {
		return nil, err
	}
	s.view = next
	return s.view.Clone(), nil
}

// Confirm executes a pending remove or clear.
func (s *Screen) Confirm(ctx context.Context, token string) (*View, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	next, err := s.svc.Confirm(ctx, s.identity, s.View(), token)
	if err != nil {
		return nil, err
	}

	return s.commit(func(current *View) *View {
		// Keep proposals made while the confirmation was in flight.
		pending := make([]PendingAction, 0, len(current.Pending))
		for _, p := range current.Pending {
			if p.Token != token {
				pending = append(pending, p)
			}
		}
		next.retainPending(pending)
		return next
	})
}

// commit swaps in the view produced by a mutation and invalidates refreshes
// that started before it.
func (s *Screen) commit(build func(current *View) *View) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, model.ErrScreenClosed
	}
	s.view = build(s.view)
	s.version++
	return s.view.Clone(), nil
}

// Close stops the refresh loop and cancels in-flight fetches. Results that
// arrive afterwards are dropped.
func (s *Screen) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
}

// opContext derives a context that is also cancelled when the screen closes.
func (s *Screen) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// shouldRefresh reports whether a periodic refresh is worth issuing.
func (s *Screen) shouldRefresh() bool {
	if s.identity == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && !s.view.IsEmpty()
}

func (s *Screen) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.shouldRefresh() {
				continue
			}
			if _, err := s.Refresh(s.ctx); err != nil && s.ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("periodic cart refresh failed")
			}
		}
	}
}
