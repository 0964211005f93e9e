package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepdesk/prepdesk-backend/internal/examcfg"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// Question authoring errors.
var (
	ErrUnknownExam        = errors.New("unknown exam type")
	ErrSectionNotInExam   = errors.New("section does not exist in this exam")
	ErrInvalidOptionIndex = errors.New("correct index outside the options list")
)

// QuestionService handles question authoring business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// Create authors a new question after validating it against the exam config:
// the section must exist and the correct index must point into the options.
func (s *QuestionService) Create(ctx context.Context, examID string, req *model.CreateQuestionRequest) (*model.Question, error) {
	cfg, err := examcfg.Get(examID)
	if err != nil {
		return nil, ErrUnknownExam
	}
	if _, err := cfg.Section(req.SectionNumber); err != nil {
		return nil, ErrSectionNotInExam
	}
	if *req.CorrectIndex >= len(req.Options) {
		return nil, ErrInvalidOptionIndex
	}

	options, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	question := &model.Question{
		ExamID:         examID,
		SectionNumber:  req.SectionNumber,
		QuestionNumber: req.QuestionNumber,
		Prompt:         req.Prompt,
		Options:        options,
		CorrectIndex:   *req.CorrectIndex,
		Diagram:        req.Diagram,
	}
	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// Update edits an existing question. Only provided fields change; section and
// question number are immutable after creation.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	question, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Prompt != "" {
		question.Prompt = req.Prompt
	}
	if len(req.Options) > 0 {
		options, err := json.Marshal(req.Options)
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		question.Options = options
	}
	if req.CorrectIndex != nil {
		question.CorrectIndex = *req.CorrectIndex
	}
	if req.Diagram != nil {
		question.Diagram = req.Diagram
	}

	// Re-validate against the final options list.
	var options []string
	if err := json.Unmarshal(question.Options, &options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if question.CorrectIndex >= len(options) {
		return nil, ErrInvalidOptionIndex
	}

	if err := s.questionRepo.Update(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questionRepo.Delete(ctx, id)
}

// GetByID retrieves a question with its grading data (admin use).
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// ListByExam retrieves all questions of an exam type, ordered by number.
func (s *QuestionService) ListByExam(ctx context.Context, examID string) ([]model.Question, error) {
	if _, err := examcfg.Get(examID); err != nil {
		return nil, ErrUnknownExam
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// Coverage reports authored-vs-required question counts for one exam type,
// so admins can see whether the paper is fully authored.
type Coverage struct {
	ExamID   string `json:"exam_id"`
	Authored int    `json:"authored"`
	Required int    `json:"required"`
	Complete bool   `json:"complete"`
}

// CoverageByExam returns the authoring coverage of one exam type.
func (s *QuestionService) CoverageByExam(ctx context.Context, examID string) (*Coverage, error) {
	cfg, err := examcfg.Get(examID)
	if err != nil {
		return nil, ErrUnknownExam
	}
	authored, err := s.questionRepo.CountByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	return &Coverage{
		ExamID:   examID,
		Authored: authored,
		Required: cfg.TotalQuestions,
		Complete: authored == cfg.TotalQuestions,
	}, nil
}
