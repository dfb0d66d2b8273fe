package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type evalFunc func(expression string) (string, error)

func (f evalFunc) Evaluate(expression string) (string, error) { return f(expression) }

type solveFunc func(ctx context.Context, query string) (AIResponse, error)

func (f solveFunc) Solve(ctx context.Context, query string) (AIResponse, error) {
	return f(ctx, query)
}

// arithmeticStub evaluates the handful of fixtures the tests use.
var arithmeticStub = evalFunc(func(expression string) (string, error) {
	switch expression {
	case "2+2":
		return "4", nil
	case "7/2":
		return "3.5", nil
	default:
		return "", errors.New("unparseable expression")
	}
})

func fallbackResponse() AIResponse {
	return AIResponse{
		Answer:      "Error",
		Explanation: "Failed to connect to AI assistant.",
		Steps:       []string{"Check your connection and try again."},
	}
}

func newTestSession(eval Evaluator, solver Solver) *Session {
	if eval == nil {
		eval = arithmeticStub
	}
	if solver == nil {
		solver = solveFunc(func(ctx context.Context, query string) (AIResponse, error) {
			return fallbackResponse(), errors.New("no solver configured")
		})
	}
	return New(eval, solver)
}

func TestAppendTokenConcatenatesInCallOrder(t *testing.T) {
	s := newTestSession(nil, nil)

	for _, token := range []string{"2", "+", "sin(", "2", ")"} {
		s.AppendToken(token)
	}

	if got := s.Snapshot().Expression; got != "2+sin(2)" {
		t.Fatalf("expected buffer %q, got %q", "2+sin(2)", got)
	}
}

func TestDeleteLastOnEmptyBufferIsNoOp(t *testing.T) {
	s := newTestSession(nil, nil)

	st := s.DeleteLast()

	if st.Expression != "" {
		t.Fatalf("expected empty buffer, got %q", st.Expression)
	}
}

func TestDeleteLastRemovesFinalCharacter(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AppendToken("12+3")

	st := s.DeleteLast()

	if st.Expression != "12+" {
		t.Fatalf("expected buffer %q, got %q", "12+", st.Expression)
	}
}

func TestCalculateRecordsIndependentHistoryEntries(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AppendToken("2+2")

	st, err := s.Calculate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st.Result != "4" {
		t.Fatalf("expected result %q, got %q", "4", st.Result)
	}
	if len(st.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(st.History))
	}

	rec := st.History[0]
	if rec.Expression != "2+2" || rec.Result != "4" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.IsAI {
		t.Fatal("expected is_ai unset on a standard calculation")
	}
	if rec.ID == "" {
		t.Fatal("expected record to carry an id")
	}

	// Unchanged buffer: a second trigger produces a second, independent
	// entry. History is not deduplicated.
	st, err = s.Calculate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(st.History))
	}
	if st.History[0].ID == st.History[1].ID {
		t.Fatal("expected distinct record ids")
	}
}

func TestCalculateEmptyBufferIsNoOp(t *testing.T) {
	called := false
	s := newTestSession(evalFunc(func(string) (string, error) {
		called = true
		return "0", nil
	}), nil)

	st, err := s.Calculate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if called {
		t.Fatal("expected evaluator not to be called for an empty buffer")
	}
	if len(st.History) != 0 {
		t.Fatalf("expected no history entries, got %d", len(st.History))
	}
}

func TestCalculateFailurePreservesBufferAndHistory(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AppendToken("2+2")
	if _, err := s.Calculate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Clear()
	s.AppendToken("2+(")

	st, err := s.Calculate()
	if err == nil {
		t.Fatal("expected an evaluation error")
	}

	if st.Result != ErrorResult {
		t.Fatalf("expected result %q, got %q", ErrorResult, st.Result)
	}
	if st.Expression != "2+(" {
		t.Fatalf("expected buffer preserved, got %q", st.Expression)
	}
	if len(st.History) != 1 {
		t.Fatalf("expected history unchanged at 1 entry, got %d", len(st.History))
	}
}

func TestHistoryIsCappedAtLimitNewestFirst(t *testing.T) {
	n := 0
	s := newTestSession(evalFunc(func(expression string) (string, error) {
		n++
		return fmt.Sprintf("%d", n), nil
	}), nil)

	for i := 0; i < 60; i++ {
		s.Clear()
		s.AppendToken("2+2")
		if _, err := s.Calculate(); err != nil {
			t.Fatalf("calculation %d failed: %v", i, err)
		}
	}

	history := s.History()
	if len(history) != HistoryLimit {
		t.Fatalf("expected %d history entries, got %d", HistoryLimit, len(history))
	}
	if history[0].Result != "60" {
		t.Fatalf("expected newest entry first with result %q, got %q", "60", history[0].Result)
	}
	if history[HistoryLimit-1].Result != "11" {
		t.Fatalf("expected oldest surviving entry %q, got %q", "11", history[HistoryLimit-1].Result)
	}
}

func TestSetModeSameModeStillClears(t *testing.T) {
	s := newTestSession(nil, nil)
	s.SetMode(ModeScientific)
	s.AppendToken("2+2")
	if _, err := s.Calculate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := s.SetMode(ModeScientific)

	if st.Mode != ModeScientific {
		t.Fatalf("expected mode %q, got %q", ModeScientific, st.Mode)
	}
	if st.Expression != "" || st.Result != "" {
		t.Fatalf("expected buffer and result cleared, got %q / %q", st.Expression, st.Result)
	}
	if len(st.History) != 1 {
		t.Fatalf("expected history untouched, got %d entries", len(st.History))
	}
}

func TestSelectHistoryRestoresWithoutNewEntry(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AppendToken("2+2")
	if _, err := s.Calculate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := s.History()[0]

	s.Clear()
	s.AppendToken("7/2")

	st, err := s.SelectHistory(rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st.Expression != "2+2" || st.Result != "4" {
		t.Fatalf("expected restored state 2+2 / 4, got %q / %q", st.Expression, st.Result)
	}
	if len(st.History) != 1 {
		t.Fatalf("expected history length unchanged, got %d", len(st.History))
	}
}

func TestSelectHistoryUnknownID(t *testing.T) {
	s := newTestSession(nil, nil)

	if _, err := s.SelectHistory("nope"); !errors.Is(err, ErrNoSuchEntry) {
		t.Fatalf("expected ErrNoSuchEntry, got %v", err)
	}
}

func TestClearHistoryEmptiesLedger(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AppendToken("2+2")
	if _, err := s.Calculate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := s.ClearHistory()

	if len(st.History) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(st.History))
	}
}

func TestSolveSuccessRecordsAIEntry(t *testing.T) {
	s := newTestSession(nil, solveFunc(func(ctx context.Context, query string) (AIResponse, error) {
		return AIResponse{
			Answer:      "42",
			Explanation: "multiply six by seven",
			Steps:       []string{"6 * 7 = 42"},
		}, nil
	}))
	s.SetMode(ModeAI)
	s.AppendToken("what is six times seven?")

	st, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Loading {
		t.Fatal("expected loading true right after dispatch")
	}

	s.Wait()
	st = s.Snapshot()

	if st.Loading {
		t.Fatal("expected loading false after resolution")
	}
	if st.Result != "42" {
		t.Fatalf("expected result %q, got %q", "42", st.Result)
	}
	if st.AIResponse == nil || st.AIResponse.Answer != "42" {
		t.Fatalf("expected ai response retained, got %+v", st.AIResponse)
	}
	if len(st.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(st.History))
	}
	rec := st.History[0]
	if !rec.IsAI {
		t.Fatal("expected record flagged as ai")
	}
	if rec.Explanation != "multiply six by seven" {
		t.Fatalf("expected record to carry the explanation, got %q", rec.Explanation)
	}
}

func TestSolveFailureSurfacesFallbackWithoutRecord(t *testing.T) {
	s := newTestSession(nil, solveFunc(func(ctx context.Context, query string) (AIResponse, error) {
		return fallbackResponse(), errors.New("connection refused")
	}))
	s.SetMode(ModeAI)
	s.AppendToken("anything")

	if _, err := s.Solve(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Wait()

	st := s.Snapshot()
	if st.Loading {
		t.Fatal("expected loading false after resolution")
	}
	if st.Result != "Error" {
		t.Fatalf("expected fallback answer %q, got %q", "Error", st.Result)
	}
	if st.AIResponse == nil || st.AIResponse.Explanation != "Failed to connect to AI assistant." {
		t.Fatalf("expected fallback response retained, got %+v", st.AIResponse)
	}
	if len(st.History) != 0 {
		t.Fatalf("expected no history entry on failure, got %d", len(st.History))
	}
}

func TestSolveBlankBufferIsNoOp(t *testing.T) {
	called := false
	s := newTestSession(nil, solveFunc(func(ctx context.Context, query string) (AIResponse, error) {
		called = true
		return AIResponse{Answer: "x"}, nil
	}))
	s.SetMode(ModeAI)
	s.AppendToken("   ")

	st, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Wait()

	if called {
		t.Fatal("expected solver not to be called for a blank buffer")
	}
	if st.Loading {
		t.Fatal("expected loading to stay false")
	}
}

func TestSolveRejectsConcurrentTrigger(t *testing.T) {
	release := make(chan struct{})
	s := newTestSession(nil, solveFunc(func(ctx context.Context, query string) (AIResponse, error) {
		<-release
		return AIResponse{Answer: "done", Steps: []string{}}, nil
	}))
	s.SetMode(ModeAI)
	s.AppendToken("slow question")

	if _, err := s.Solve(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Solve(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	s.Wait()

	if st := s.Snapshot(); st.Result != "done" {
		t.Fatalf("expected first request to resolve, got result %q", st.Result)
	}
}

func TestModeSwitchDiscardsLateAIResponse(t *testing.T) {
	release := make(chan struct{})
	s := newTestSession(nil, solveFunc(func(ctx context.Context, query string) (AIResponse, error) {
		<-release
		return AIResponse{Answer: "stale", Steps: []string{}}, nil
	}))
	s.SetMode(ModeAI)
	s.AppendToken("slow question")

	if _, err := s.Solve(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// User moves away while the request is in flight.
	st := s.SetMode(ModeStandard)
	if st.Loading {
		t.Fatal("expected mode switch to reset the loading flag")
	}

	close(release)
	s.Wait()

	st = s.Snapshot()
	if st.Result != "" {
		t.Fatalf("expected stale answer discarded, got result %q", st.Result)
	}
	if st.AIResponse != nil {
		t.Fatalf("expected no ai response, got %+v", st.AIResponse)
	}
	if len(st.History) != 0 {
		t.Fatalf("expected no history entry from a stale response, got %d", len(st.History))
	}
}

func TestSnapshotIsolatesHistory(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AppendToken("2+2")
	if _, err := s.Calculate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := s.Snapshot()
	st.History[0].Result = "mutated"

	if got := s.History()[0].Result; got != "4" {
		t.Fatalf("expected ledger unaffected by snapshot mutation, got %q", got)
	}
}
