package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
)

// AdminService handles administrator account business logic.
type AdminService struct {
	adminRepo *repository.AdminRepository
	auth      *AuthService
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository, auth *AuthService) *AdminService {
	return &AdminService{adminRepo: adminRepo, auth: auth}
}

// Login verifies credentials and issues an admin JWT.
func (s *AdminService) Login(ctx context.Context, req *model.AdminLoginRequest) (string, *model.Admin, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get admin: %w", err)
	}

	if err := s.auth.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.auth.GenerateAdminToken(admin.ID)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// Create registers a new admin account (used by the create-admin CLI).
func (s *AdminService) Create(ctx context.Context, name, email, password string) (*model.Admin, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{Name: name, Email: email, PasswordHash: hash}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}
