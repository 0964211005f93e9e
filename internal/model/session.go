package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// ExamSession represents one student's attempt at a sectioned exam.
// CurrentSection is a forward-only 1-based pointer into the exam's section
// list; CompletedSections is append-only.
type ExamSession struct {
	ID                uuid.UUID     `json:"id"`
	ExamID            string        `json:"exam_id"`
	StudentID         int           `json:"student_id"`
	CurrentSection    int           `json:"current_section"`
	CompletedSections []int32       `json:"completed_sections"`
	SectionStartedAt  time.Time     `json:"section_started_at"`
	Status            SessionStatus `json:"status"`
	InfractionCount   int           `json:"infraction_count"`
	CorrectCount      *int          `json:"correct_count,omitempty"`
	WrongCount        *int          `json:"wrong_count,omitempty"`
	SkippedCount      *int          `json:"skipped_count,omitempty"`
	Score             *float64      `json:"score,omitempty"`
	Percentage        *int          `json:"percentage,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        *time.Time    `json:"finished_at,omitempty"`
}

// InProgress reports whether the session can still be mutated.
func (s *ExamSession) InProgress() bool {
	return s.Status == SessionStatusInProgress
}

// SectionCompleted reports whether the given section number has already
// been irreversibly completed.
func (s *ExamSession) SectionCompleted(number int) bool {
	for _, n := range s.CompletedSections {
		if int(n) == number {
			return true
		}
	}
	return false
}

// CanAnswer reports whether an answer for a question in the given section
// is acceptable: the session is in progress and the question belongs to
// the current, not-yet-completed section.
func (s *ExamSession) CanAnswer(sectionNumber int) bool {
	return s.InProgress() &&
		sectionNumber == s.CurrentSection &&
		!s.SectionCompleted(sectionNumber)
}

// StartSessionRequest is the payload for starting (or resuming) a session.
type StartSessionRequest struct {
	ExamID string `json:"exam_id" binding:"required,min=2,max=20"`
}

// SaveAnswerRequest is the payload for recording an answer.
type SaveAnswerRequest struct {
	QuestionID    uuid.UUID `json:"question_id" binding:"required"`
	SelectedIndex *int      `json:"selected_index" binding:"required,min=0"`
}

// SectionSummary is returned before the irreversible section advance so
// the client can show a confirmation with the unanswered count.
type SectionSummary struct {
	SectionNumber int    `json:"section_number"`
	SectionName   string `json:"section_name"`
	QuestionCount int    `json:"question_count"`
	Answered      int    `json:"answered"`
	Unanswered    int    `json:"unanswered"`
	LastSection   bool   `json:"last_section"`
}

// SessionState is the resume/reload payload: everything the client needs
// to rebuild the exam surface mid-session.
type SessionState struct {
	Session          *ExamSession   `json:"session"`
	RemainingSeconds int            `json:"remaining_seconds"`
	Answers          map[string]int `json:"answers"`
}
