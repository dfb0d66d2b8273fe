package calculator

import "github.com/lokeshkarri54321-sys/Calculator/internal/session"

// TokenRequest is the JSON body for POST /calculator/sessions/{id}/input.
type TokenRequest struct {
	Token string `json:"token"`
}

// KeyRequest is the JSON body for POST /calculator/sessions/{id}/keys.
type KeyRequest struct {
	Key string `json:"key"` // "0".."9", operators, "Enter", "Backspace", "Escape"
}

// ModeRequest is the JSON body for PUT /calculator/sessions/{id}/mode.
type ModeRequest struct {
	Mode string `json:"mode"` // "standard", "scientific", "ai"
}

// StateResponse is the observable session state returned by every
// state-mutating endpoint and by GET /calculator/sessions/{id}.
type StateResponse struct {
	SessionID  string              `json:"session_id"`
	Expression string              `json:"expression"`
	Result     string              `json:"result"`
	Mode       string              `json:"mode"`
	Loading    bool                `json:"loading"`
	AIResponse *session.AIResponse `json:"ai_response,omitempty"`
	History    []session.Record    `json:"history"`
}

// HistoryResponse is the JSON body for GET /calculator/sessions/{id}/history.
type HistoryResponse struct {
	History []session.Record `json:"history"`
}

func newStateResponse(id string, st session.State) StateResponse {
	history := st.History
	if history == nil {
		history = []session.Record{}
	}
	return StateResponse{
		SessionID:  id,
		Expression: st.Expression,
		Result:     st.Result,
		Mode:       string(st.Mode),
		Loading:    st.Loading,
		AIResponse: st.AIResponse,
		History:    history,
	}
}
