package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scidatahub/platform/internal/auth"
	"github.com/scidatahub/platform/internal/models"
	repo "github.com/scidatahub/platform/internal/repository"
)

type UserService struct {
	users repo.Users
	tm    *auth.TokenManager
}

func NewUserService(users repo.Users, tm *auth.TokenManager) *UserService {
	return &UserService{users: users, tm: tm}
}

type RegisterInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
}

type AuthResult struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	role := models.RoleCitizen
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return AuthResult{}, fmt.Errorf("%w: invalid role", ErrInvalidInput)
		}
		role = r
	}
	if len(in.Password) < 6 {
		return AuthResult{}, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	u := models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		Organization: strings.TrimSpace(in.Organization),
		IsActive:     true,
		Permissions:  models.PermissionsFor(role),
	}
	if err := u.Validate(); err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
		return AuthResult{}, ErrEmailInUse
	} else if !errors.Is(err, repo.ErrNotFound) {
		return AuthResult{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	u.PasswordHash = hash

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issueToken(created)
}

func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if !u.IsActive {
		return AuthResult{}, ErrAccountDeactivated
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		return AuthResult{}, err
	}
	now := time.Now()
	u.LastLogin = &now
	return s.issueToken(u)
}

// Verify resolves a raw token to its user, rejecting tokens for deactivated
// accounts.
func (s *UserService) Verify(ctx context.Context, token string) (models.User, error) {
	claims, err := s.tm.Parse(token)
	if err != nil {
		return models.User{}, auth.ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, auth.ErrInvalidToken
	}
	if err != nil {
		return models.User{}, err
	}
	if !u.IsActive {
		return models.User{}, auth.ErrInvalidToken
	}
	return u, nil
}

func (s *UserService) Profile(ctx context.Context, id string) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

type ProfileUpdate struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization"`
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (models.User, error) {
	u, err := s.users.UpdateProfile(ctx, id, strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), strings.TrimSpace(in.Organization))
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

type UserPage struct {
	Users       []models.User `json:"users"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int           `json:"total"`
}

func (s *UserService) List(ctx context.Context, f repo.UserFilter) (UserPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{
		Users:       users,
		TotalPages:  totalPages(total, f.Limit),
		CurrentPage: f.Page,
		Total:       total,
	}, nil
}

func (s *UserService) Deactivate(ctx context.Context, id string) error {
	err := s.users.SetActive(ctx, id, false)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *UserService) issueToken(u models.User) (AuthResult, error) {
	token, exp, err := s.tm.Generate(u)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
