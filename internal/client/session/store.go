package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/civicreport/internal/logging"
)

// ErrNoReceipt is returned by Login when the receipt did not come from
// Chain.Save.
var ErrNoReceipt = errors.New("session was not saved to storage")

// Loader reads the serialized session.
type Loader interface {
	Load(ctx context.Context) []byte
}

// Eraser removes the serialized session from storage.
type Eraser interface {
	Erase(ctx context.Context) error
}

// Store owns the current session. It starts in the loading state and
// resolves to authenticated or unauthenticated exactly once, either when
// Initialize finishes or when Login happens first.
type Store struct {
	loader Loader
	eraser Eraser
	logger logging.Logger

	mu      sync.RWMutex
	session *Session
	loading bool
	subs    map[chan struct{}]struct{}

	ready    chan struct{}
	resolve  sync.Once
	initOnce sync.Once
}

func NewStore(loader Loader, eraser Eraser, logger logging.Logger) *Store {
	return &Store{
		loader:  loader,
		eraser:  eraser,
		logger:  logger.With("module", "session.store"),
		loading: true,
		subs:    make(map[chan struct{}]struct{}),
		ready:   make(chan struct{}),
	}
}

// Initialize reads the stored session. Malformed or missing payloads leave
// the store unauthenticated. Only the first call does any work.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		var loaded *Session
		if raw := s.loader.Load(ctx); raw != nil {
			sess, err := Decode(raw)
			if err != nil {
				s.logger.Warn(ctx, "discarding stored session", "error", err)
			} else {
				loaded = sess
			}
		}

		s.mu.Lock()
		changed := false
		if s.loading {
			s.session = loaded
			s.markResolved()
			changed = true
		}
		s.mu.Unlock()

		if changed {
			s.notify()
		}
	})
}

// Ready is closed once the store has left the loading state.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Login makes the saved session current.
func (s *Store) Login(r Receipt) error {
	if !r.written {
		return ErrNoReceipt
	}
	sess := r.session

	s.mu.Lock()
	s.session = &sess
	if s.loading {
		s.markResolved()
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Logout drops the current session and erases it from storage. The store is
// unauthenticated afterwards even when erasing fails, and a load still in
// flight is discarded.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	changed := s.session != nil || s.loading
	s.session = nil
	if s.loading {
		s.markResolved()
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}

	return s.eraser.Erase(ctx)
}

// Snapshot returns the current state. The session is a copy.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{Loading: s.loading}
	if s.session != nil {
		cp := *s.session
		st.Session = &cp
	}
	return st
}

// Subscribe returns a channel that receives a signal after every state
// change, and a function that cancels the subscription. Signals are
// coalesced when the receiver lags.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}

// markResolved must be called with mu held.
func (s *Store) markResolved() {
	s.loading = false
	s.resolve.Do(func() { close(s.ready) })
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
