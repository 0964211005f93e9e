package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// ErrEmailTaken is returned when registering with an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

// StudentService handles student account business logic.
type StudentService struct {
	studentRepo *repository.StudentRepository
	auth        *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, auth *AuthService) *StudentService {
	return &StudentService{studentRepo: studentRepo, auth: auth}
}

// Register creates a new student account.
func (s *StudentService) Register(ctx context.Context, req *model.RegisterStudentRequest) (*model.Student, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student := &model.Student{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

// Login verifies credentials and issues a student JWT.
func (s *StudentService) Login(ctx context.Context, req *model.StudentLoginRequest) (string, *model.Student, error) {
	student, err := s.studentRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get student: %w", err)
	}

	if err := s.auth.CheckPassword(student.PasswordHash, req.Password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.auth.GenerateStudentToken(ctx, student.ID)
	if err != nil {
		return "", nil, err
	}
	return token, student, nil
}

// GetByID retrieves a student profile.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}
