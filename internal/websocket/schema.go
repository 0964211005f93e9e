package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer          Action = "answer"
	ActionFocusLoss       Action = "focus_loss"
	ActionSectionComplete Action = "section_complete"
	ActionSubmit          Action = "submit"
	ActionPing            Action = "ping"
)

// RequestPayload is the single inbound message shape; unused fields stay
// empty depending on the action.
type RequestPayload struct {
	Action Action `json:"action"`
	// answer
	QuestionID    string `json:"question_id,omitempty"`
	SelectedIndex *int   `json:"selected_index,omitempty"`
	// focus_loss
	Signal string `json:"signal,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSaved      Event = "saved"
	EventWarning    Event = "warning"
	EventSection    Event = "section"
	EventProctor    Event = "proctor"
	EventGraded     Event = "graded"
	EventTerminated Event = "terminated"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// EventEnvelope wraps every outbound message.
type EventEnvelope struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorResponse is sent when an action fails.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
