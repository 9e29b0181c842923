package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/checkout"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/composer"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/metrics"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
)

// Session is the in-memory state of one browser session: its wizard,
// its active checkout and the logged-in user.
type Session struct {
	ID       string
	Composer *composer.Composer

	mu              sync.Mutex
	user            *domain.User
	orchestrator    *checkout.Orchestrator
	checkoutStarted time.Time
	bookings        []domain.Booking
	bookingsCached  bool
	lastSeen        time.Time
}

// CurrentUser returns a copy of the logged-in user, or nil
func (s *Session) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser replaces the logged-in user; nil logs out
func (s *Session) SetUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		s.bookings, s.bookingsCached = nil, false
		return
	}
	cp := *u
	s.user = &cp
}

// Orchestrator returns the active checkout, or nil
func (s *Session) Orchestrator() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orchestrator
}

// replaceOrchestrator installs o and closes the previous checkout
func (s *Session) replaceOrchestrator(o *checkout.Orchestrator, startedAt time.Time) {
	s.mu.Lock()
	prev := s.orchestrator
	s.orchestrator = o
	s.checkoutStarted = startedAt
	s.mu.Unlock()

	if prev != nil && prev != o {
		prev.Close()
	}
}

func (s *Session) checkoutStartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkoutStarted
}

// cachedBookings returns the cached list when present
func (s *Session) cachedBookings() ([]domain.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bookings), s.bookingsCached
}

func (s *Session) cacheBookings(bookings []domain.Booking) {
	s.mu.Lock()
	s.bookings = slices.Clone(bookings)
	s.bookingsCached = true
	s.mu.Unlock()
}

// InvalidateBookings drops the cached booking list
func (s *Session) InvalidateBookings() {
	s.mu.Lock()
	s.bookings, s.bookingsCached = nil, false
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.mu.Lock()
	o := s.orchestrator
	s.orchestrator = nil
	s.mu.Unlock()

	if o != nil {
		o.Close()
	}
}

// SessionRegistry holds sessions in memory and evicts idle ones
type SessionRegistry struct {
	tours   composer.TourReader
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewSessionRegistry creates a registry whose wizards read tours from tours
func NewSessionRegistry(tours composer.TourReader, idleTTL time.Duration) *SessionRegistry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &SessionRegistry{
		tours:    tours,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it on first use
func (r *SessionRegistry) Get(ctx context.Context, id string) *Session {
	now := r.now()

	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		sess = &Session{ID: id}
		sess.Composer = composer.New(r.tours, sess)
		r.sessions[id] = sess
	}
	r.mu.Unlock()

	if !ok {
		metrics.SessionOpened(ctx)
	}
	sess.touch(now)
	return sess
}

// Lookup returns an existing session without creating one
func (r *SessionRegistry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and closes their checkouts
func (r *SessionRegistry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*Session
	for id, sess := range r.sessions {
		if sess.idleSince().Before(cutoff) {
			evicted = append(evicted, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range evicted {
		sess.close()
		metrics.SessionClosed(ctx)
	}
	if len(evicted) > 0 {
		logger.Get().Debug("evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Start runs Sweep every interval until Stop
func (r *SessionRegistry) Start(ctx context.Context, interval time.Duration) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweeper and closes every session
func (r *SessionRegistry) Stop() {
	r.mu.Lock()
	if r.running {
		close(r.stopCh)
		r.running = false
	}
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	r.wg.Wait()
	for _, sess := range sessions {
		sess.close()
	}
}
