package model

import (
	"time"

	"github.com/google/uuid"
)

// Response is a student's answer to one question within a session.
// Keyed by (session id, question id); upserted, last write wins. Never
// deleted while the session is in progress.
type Response struct {
	SessionID     uuid.UUID `json:"session_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	SelectedIndex int       `json:"selected_index"`
	UpdatedAt     time.Time `json:"updated_at"`
}
