package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/marchpool/bracket-pool/models"
	"github.com/marchpool/bracket-pool/repositories"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidUserRole = errors.New("role must be admin or player")

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	// CreateUser is the admin path: unlike Register it can assign any role.
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUserInput struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{
		userRepo: userRepo,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.createUser(ctx, input.Username, input.Password, models.RolePlayer)
}

func (s *authService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	role := input.Role
	if role == "" {
		role = models.RolePlayer
	}
	switch role {
	case models.RoleAdmin, models.RolePlayer:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserRole, input.Role)
	}
	return s.createUser(ctx, input.Username, input.Password, role)
}

func (s *authService) createUser(ctx context.Context, username, password string, role models.UserRole) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserUsernameConflict) {
			return nil, ErrUsernameConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}
