package tour

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitcoinpitch/tour/internal/tutorial/engine"
)

// session is one visitor's page: its engine and the snapshot page it
// renders into. mu serializes every event the visitor sends.
type session struct {
	mu       sync.Mutex
	visitor  string
	language string
	engine   *engine.Engine
	page     *snapshotPage
	limiter  *rate.Limiter
	lastSeen time.Time
}

// registry holds at most one session per visitor.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func newRegistry(ttl time.Duration, limit rate.Limit, burst int, now func() time.Time) *registry {
	if now == nil {
		now = time.Now
	}
	if burst <= 0 {
		burst = 1
	}
	return &registry{
		sessions: map[string]*session{},
		ttl:      ttl,
		limit:    limit,
		burst:    burst,
		now:      now,
	}
}

// acquire returns the visitor's session, creating it when absent, and
// touches its idle timer. The caller must lock the session before use.
func (r *registry) acquire(visitor string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	s, ok := r.sessions[visitor]
	if !ok {
		s = &session{
			visitor: visitor,
			page:    newSnapshotPage(),
			limiter: rate.NewLimiter(r.limit, r.burst),
		}
		r.sessions[visitor] = s
	}
	s.lastSeen = now
	return s
}

// lookup returns the visitor's session without creating one.
func (r *registry) lookup(visitor string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[visitor]
	return s, ok
}

// sweep drops sessions idle longer than the TTL and returns how many went.
// A session whose lock is held is left for the next sweep. A session with a
// showing tour survives until it has been idle for twice the TTL.
func (r *registry) sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	cutoff := now.Add(-r.ttl)
	abandoned := now.Add(-2 * r.ttl)
	removed := 0
	for visitor, s := range r.sessions {
		if !s.lastSeen.Before(cutoff) {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		showing := s.engine != nil && s.engine.Active()
		if !showing || s.lastSeen.Before(abandoned) {
			delete(r.sessions, visitor)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
