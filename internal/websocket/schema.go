package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer        Action = "answer"
	ActionNavigate      Action = "navigate"
	ActionFinishSection Action = "finish_section"
	ActionReviewChoice  Action = "review_choice"
	ActionPrayerBreak   Action = "prayer_break"
	ActionResume        Action = "resume"
	ActionPing          Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
	// Data carries the action body, decoded once the action is known.
	Data json.RawMessage `json:"data,omitempty"`
}

// AnswerData records a choice for a question of the current section.
type AnswerData struct {
	QuestionID string `json:"question_id"`
	Option     *int   `json:"option"`
}

// NavigateData moves within the current section.
type NavigateData struct {
	Direction string `json:"direction"`
	Index     int    `json:"index"`
}

// ReviewChoiceData answers the final review prompt.
type ReviewChoiceData struct {
	Choice string `json:"choice"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventResults  Event = "results"
	EventClosed   Event = "session_closed"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// SnapshotResponse pushes the current session view.
type SnapshotResponse struct {
	Event Event `json:"event"`
	Data  any   `json:"data"`
}

// ErrorResponse reports a rejected action. Code matches the HTTP error codes.
type ErrorResponse struct {
	Event   Event  `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
