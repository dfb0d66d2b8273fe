package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session survives before the sweeper
// reclaims it.
const DefaultTTL = 30 * time.Minute

const sweepInterval = time.Minute

// Store is the in-memory session registry. Sessions live only for the
// lifetime of the process; idle ones are evicted by a background sweeper.
type Store struct {
	eval   Evaluator
	solver Solver
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewStore creates a store and starts its eviction sweeper. ttl <= 0
// falls back to DefaultTTL. Close must be called to stop the sweeper.
func NewStore(eval Evaluator, solver Solver, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	st := &Store{
		eval:     eval,
		solver:   solver,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go st.sweep()
	return st
}

// Create registers a new session and returns it.
func (st *Store) Create() *Session {
	s := New(st.eval, st.solver)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session for id and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// Delete discards the session for id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Close stops the sweeper and waits for in-flight AI requests so their
// goroutines do not outlive server shutdown.
func (st *Store) Close() {
	st.stopOnce.Do(func() {
		close(st.stop)
	})
	<-st.done

	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	for _, s := range sessions {
		s.Wait()
	}
}

func (st *Store) sweep() {
	defer close(st.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-st.stop:
			return
		case now := <-ticker.C:
			st.evictIdle(now)
		}
	}
}

func (st *Store) evictIdle(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			delete(st.sessions, id)
		}
	}
}
