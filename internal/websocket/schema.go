package websocket

import "github.com/placehub/placement-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionMark     Action = "mark"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// Request is the single client message shape. Index fields are read
// depending on the action.
type Request struct {
	Action        Action `json:"action"`
	QuestionIndex int    `json:"question_index"`
	OptionIndex   int    `json:"option_index"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventTime      Event = "time"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse carries the full attempt snapshot after a mutation.
type StateResponse struct {
	Event   Event              `json:"event"`
	Attempt *model.ExamAttempt `json:"attempt"`
}

// TimeResponse is the periodic countdown push.
type TimeResponse struct {
	Event         Event `json:"event"`
	TimeRemaining int   `json:"time_remaining"`
}

// SubmittedResponse announces the terminal transition, whether explicit
// or by expiry.
type SubmittedResponse struct {
	Event      Event   `json:"event"`
	TotalScore int     `json:"total_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
