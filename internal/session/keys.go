package session

// Physical keyboard routing for the standard/scientific surfaces. In ai
// mode the free-text input owns keystrokes, so keys are not routed to
// the buffer at all.

// key names matching the presentation layer's key events.
const (
	keyEnter     = "Enter"
	keyBackspace = "Backspace"
	keyEscape    = "Escape"
)

var keyTokens = map[string]struct{}{
	"0": {}, "1": {}, "2": {}, "3": {}, "4": {},
	"5": {}, "6": {}, "7": {}, "8": {}, "9": {},
	".": {}, "+": {}, "-": {}, "*": {}, "/": {},
	"(": {}, ")": {}, "^": {},
}

// HandleKey routes one keyboard event: digits and operators append to the
// buffer, Enter triggers a calculation, Backspace deletes the last
// character, Escape clears. Unknown keys, and all keys while in ai mode,
// are ignored. The returned error is a calculation error from an Enter
// press, already folded into the state.
func (s *Session) HandleKey(key string) (State, error) {
	s.mu.Lock()
	mode := s.state.Mode
	s.mu.Unlock()

	if mode == ModeAI {
		return s.Snapshot(), nil
	}

	switch key {
	case keyEnter:
		return s.Calculate()
	case keyBackspace:
		return s.DeleteLast(), nil
	case keyEscape:
		return s.Clear(), nil
	}

	if _, ok := keyTokens[key]; ok {
		return s.AppendToken(key), nil
	}
	return s.Snapshot(), nil
}
