package model

// PersistAnswerPayload is the queue message consumed by the answer worker.
type PersistAnswerPayload struct {
	SessionID     string `json:"session_id"`
	QuestionID    string `json:"question_id"`
	SelectedIndex int    `json:"selected_index"`
}

// PersistInfractionPayload is the queue message consumed by the infraction
// worker. Timestamp is Unix seconds.
type PersistInfractionPayload struct {
	SessionID string `json:"session_id"`
	Signal    string `json:"signal"`
	Timestamp int64  `json:"timestamp"`
}
