package session

import (
	"time"
	"unicode/utf8"
)

// Mode selects the active input surface and the evaluation path a
// calculate trigger uses.
type Mode string

const (
	ModeStandard   Mode = "standard"
	ModeScientific Mode = "scientific"
	ModeAI         Mode = "ai"
)

// ParseMode returns the Mode for s, or false when s is not a known mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeStandard, ModeScientific, ModeAI:
		return Mode(s), true
	}
	return "", false
}

// HistoryLimit bounds the ledger to the most recent entries.
const HistoryLimit = 50

// ErrorResult is the display value for a failed evaluation.
const ErrorResult = "Error"

// Record is one logged past calculation. Immutable once created.
type Record struct {
	ID          string    `json:"id"`
	Expression  string    `json:"expression"`
	Result      string    `json:"result"`
	IsAI        bool      `json:"is_ai,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AIResponse is the structured answer for the currently displayed
// AI calculation. Transient: replaced on the next trigger, dropped on
// mode switch.
type AIResponse struct {
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Steps       []string `json:"steps"`
}

// State is the complete observable session state. Values are plain data;
// all mutations go through the transition functions below, which take a
// State and return the next one.
type State struct {
	Expression string      `json:"expression"`
	Result     string      `json:"result"`
	Mode       Mode        `json:"mode"`
	Loading    bool        `json:"loading"`
	AIResponse *AIResponse `json:"ai_response,omitempty"`
	History    []Record    `json:"history"`
}

// NewState returns the initial state: empty buffer, standard mode.
func NewState() State {
	return State{Mode: ModeStandard}
}

// appendToken concatenates token to the buffer. No validation; validity
// is deferred to evaluation time.
func appendToken(s State, token string) State {
	s.Expression += token
	return s
}

// deleteLast removes the final character of the buffer. No-op when empty.
func deleteLast(s State) State {
	if s.Expression == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s.Expression)
	s.Expression = s.Expression[:len(s.Expression)-size]
	return s
}

// clearEntry resets buffer and result.
func clearEntry(s State) State {
	s.Expression = ""
	s.Result = ""
	return s
}

// switchMode sets the mode and unconditionally clears buffer, result and
// any pending AI response, even when newMode equals the current mode.
func switchMode(s State, newMode Mode) State {
	s.Mode = newMode
	s.Expression = ""
	s.Result = ""
	s.AIResponse = nil
	s.Loading = false
	return s
}

// recordResult sets the result and prepends rec to the ledger, truncating
// to HistoryLimit. The ledger is copied, never mutated in place.
func recordResult(s State, rec Record) State {
	s.Result = rec.Result
	history := make([]Record, 0, len(s.History)+1)
	history = append(history, rec)
	history = append(history, s.History...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	s.History = history
	return s
}

// failResult sets the error display value. The buffer is preserved so the
// user can correct it; no record is created.
func failResult(s State) State {
	s.Result = ErrorResult
	return s
}

// restoreRecord copies a ledger entry's expression and result back into
// the live state without touching the ledger itself.
func restoreRecord(s State, rec Record) State {
	s.Expression = rec.Expression
	s.Result = rec.Result
	return s
}

// clearHistory empties the ledger.
func clearHistory(s State) State {
	s.History = nil
	return s
}

// snapshot returns a copy of s safe to hand outside the owning session:
// the history slice and AI response are duplicated.
func snapshot(s State) State {
	if s.History != nil {
		history := make([]Record, len(s.History))
		copy(history, s.History)
		s.History = history
	}
	if s.AIResponse != nil {
		resp := *s.AIResponse
		if resp.Steps != nil {
			steps := make([]string, len(resp.Steps))
			copy(steps, resp.Steps)
			resp.Steps = steps
		}
		s.AIResponse = &resp
	}
	return s
}
