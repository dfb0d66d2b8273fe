package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when an AI request is already in flight for
	// the session. The trigger is guarded server-side; a second request
	// must wait for the first to resolve.
	ErrBusy = errors.New("ai request already in flight")

	// ErrNoSuchEntry is returned when a history entry id is not in the
	// ledger.
	ErrNoSuchEntry = errors.New("no such history entry")
)

// Evaluator evaluates a mathematical expression and returns its display
// value. A returned error means the expression is syntactically invalid
// or mathematically undefined.
type Evaluator interface {
	Evaluate(expression string) (string, error)
}

// Solver answers a natural-language query. The response is always
// well-formed: on any internal failure the solver returns its fallback
// record alongside the underlying error. Callers display the response
// either way and use the error only to decide whether to log the
// calculation in history.
type Solver interface {
	Solve(ctx context.Context, query string) (AIResponse, error)
}

// Session owns one calculator state. All mutations happen under mu, so
// the state has a single writer even across the AI suspension point: the
// async resolution re-enters through the same lock and is discarded when
// its generation is stale.
type Session struct {
	ID        string
	CreatedAt time.Time

	eval   Evaluator
	solver Solver

	mu         sync.Mutex
	state      State
	generation uint64
	lastAccess time.Time

	inflight sync.WaitGroup
}

// New creates a session in the initial state.
func New(eval Evaluator, solver Solver) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		eval:       eval,
		solver:     solver,
		state:      NewState(),
		lastAccess: now,
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.state)
}

// AppendToken concatenates token to the expression buffer.
func (s *Session) AppendToken(token string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = appendToken(s.state, token)
	return snapshot(s.state)
}

// DeleteLast removes the final character of the buffer; no-op when empty.
func (s *Session) DeleteLast() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = deleteLast(s.state)
	return snapshot(s.state)
}

// Clear resets buffer and result.
func (s *Session) Clear() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = clearEntry(s.state)
	return snapshot(s.state)
}

// SetMode switches the input surface. Buffer, result and any pending AI
// response are cleared even when mode is unchanged, and the generation is
// bumped so a late-arriving AI response from before the switch is dropped.
func (s *Session) SetMode(mode Mode) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = switchMode(s.state, mode)
	return snapshot(s.state)
}

// Calculate runs the standard/scientific path: the buffer is handed to
// the evaluator synchronously. On success the result is recorded in
// history; on failure the result becomes the error display value, the
// buffer is preserved and nothing is recorded. An empty buffer is a
// no-op. The returned error is the evaluation error, already folded into
// the state; callers use it for diagnostics only.
func (s *Session) Calculate() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Expression == "" {
		return snapshot(s.state), nil
	}

	result, err := s.eval.Evaluate(s.state.Expression)
	if err != nil {
		s.state = failResult(s.state)
		return snapshot(s.state), err
	}

	s.state = recordResult(s.state, Record{
		ID:         uuid.NewString(),
		Expression: s.state.Expression,
		Result:     result,
		CreatedAt:  time.Now(),
	})
	return snapshot(s.state), nil
}

// Solve runs the AI path: it marks the session loading, clears the prior
// AI response and dispatches the solver on its own goroutine. The call
// returns immediately; resolution is applied back into the session under
// its lock. A blank buffer is a no-op. ErrBusy is returned while a
// previous request is still in flight.
func (s *Session) Solve(ctx context.Context) (State, error) {
	s.mu.Lock()

	if strings.TrimSpace(s.state.Expression) == "" {
		st := snapshot(s.state)
		s.mu.Unlock()
		return st, nil
	}
	if s.state.Loading {
		st := snapshot(s.state)
		s.mu.Unlock()
		return st, ErrBusy
	}

	s.generation++
	gen := s.generation
	query := s.state.Expression
	s.state.Loading = true
	s.state.AIResponse = nil
	st := snapshot(s.state)
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		resp, err := s.solver.Solve(ctx, query)
		s.resolve(gen, query, resp, err)
	}()

	return st, nil
}

// resolve applies a solver result. Stale results (superseded by a mode
// switch) are discarded entirely; the switch already reset the loading
// flag and the response holder.
func (s *Session) resolve(gen uint64, query string, resp AIResponse, solveErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}

	s.state.Loading = false
	s.state.AIResponse = &resp

	if solveErr != nil {
		s.state.Result = resp.Answer
		return
	}

	s.state = recordResult(s.state, Record{
		ID:          uuid.NewString(),
		Expression:  query,
		Result:      resp.Answer,
		IsAI:        true,
		Explanation: resp.Explanation,
		CreatedAt:   time.Now(),
	})
}

// Wait blocks until any in-flight AI request has resolved.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// SelectHistory copies the identified entry's expression and result back
// into the live state. The ledger itself is unchanged.
func (s *Session) SelectHistory(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.state.History {
		if rec.ID == id {
			s.state = restoreRecord(s.state, rec)
			return snapshot(s.state), nil
		}
	}
	return snapshot(s.state), ErrNoSuchEntry
}

// ClearHistory empties the ledger. Irreversible within the session.
func (s *Session) ClearHistory() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = clearHistory(s.state)
	return snapshot(s.state)
}

// History returns a copy of the ledger, newest first.
func (s *Session) History() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]Record, len(s.state.History))
	copy(history, s.state.History)
	return history
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}
