package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Question represents a single exam question. Authored by administrators;
// immutable from the point of view of an active session.
type Question struct {
	ID             uuid.UUID       `json:"id"`
	ExamID         string          `json:"exam_id"`
	SectionNumber  int             `json:"section_number"`
	QuestionNumber int             `json:"question_number"`
	Prompt         string          `json:"prompt"`
	Options        json.RawMessage `json:"options"`
	CorrectIndex   int             `json:"correct_index"`
	Diagram        json.RawMessage `json:"diagram,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// QuestionForStudent is a question without the correct index, served to
// students during a session.
type QuestionForStudent struct {
	ID             uuid.UUID       `json:"id"`
	SectionNumber  int             `json:"section_number"`
	QuestionNumber int             `json:"question_number"`
	Prompt         string          `json:"prompt"`
	Options        json.RawMessage `json:"options"`
	Diagram        json.RawMessage `json:"diagram,omitempty"`
}

// ForStudent strips grading data from a question.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:             q.ID,
		SectionNumber:  q.SectionNumber,
		QuestionNumber: q.QuestionNumber,
		Prompt:         q.Prompt,
		Options:        q.Options,
		Diagram:        q.Diagram,
	}
}

// CreateQuestionRequest is the payload for adding a question to an exam.
type CreateQuestionRequest struct {
	SectionNumber  int             `json:"section_number" binding:"required,min=1"`
	QuestionNumber int             `json:"question_number" binding:"required,min=1"`
	Prompt         string          `json:"prompt" binding:"required,min=1,max=4000"`
	Options        []string        `json:"options" binding:"required,min=2,max=10,dive,required"`
	CorrectIndex   *int            `json:"correct_index" binding:"required,min=0"`
	Diagram        json.RawMessage `json:"diagram" binding:"omitempty"`
}

// UpdateQuestionRequest is the payload for editing an existing question.
type UpdateQuestionRequest struct {
	Prompt       string          `json:"prompt" binding:"omitempty,min=1,max=4000"`
	Options      []string        `json:"options" binding:"omitempty,min=2,max=10,dive,required"`
	CorrectIndex *int            `json:"correct_index" binding:"omitempty,min=0"`
	Diagram      json.RawMessage `json:"diagram" binding:"omitempty"`
}
