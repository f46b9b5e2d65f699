package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"greendrake/realty/internal/auth"
	"greendrake/realty/internal/config"
	"greendrake/realty/internal/models"
)

// RegisterInput holds the fields of a registration request.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        models.Role
	PhoneNumber string
}

// AuthResult is returned by every operation that signs a user in.
type AuthResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

// PasswordReset is produced for an existing account when a reset is requested.
type PasswordReset struct {
	User  *models.User
	Token string // plaintext, only ever sent by email
}

// IAuthService handles registration, sign-in, token rotation and password recovery.
type IAuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) (*PasswordReset, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error)
}

type authService struct {
	cfg         *config.Config
	userService IUserService
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, userService IUserService) IAuthService {
	return &authService{cfg: cfg, userService: userService}
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	access, err := auth.GenerateJWT(user.ID, string(user.Role), auth.TokenTypeAccess, s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateJWT(user.ID, string(user.Role), auth.TokenTypeRefresh, s.cfg.JwtRefreshSecret, s.cfg.JwtRefreshTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.userService.CreateUser(ctx, in.Name, in.Email, in.Password, in.Role, in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	log.Printf("Registered new %s account %s", user.Role, user.ID.Hex())
	return s.issue(user)
}

// Login returns ErrInvalidCredentials for both an unknown email and a wrong password.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userService.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Refresh validates a refresh token and issues a new access/refresh pair.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	claims, err := auth.ValidateJWT(refreshToken, s.cfg.JwtRefreshSecret, auth.TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := claims.ObjectID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.userService.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.issue(user)
}

// RequestPasswordReset returns nil, nil for unknown emails so callers cannot reveal which accounts exist.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) (*PasswordReset, error) {
	user, err := s.userService.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	token, digest, err := auth.NewResetToken()
	if err != nil {
		return nil, err
	}
	if err := s.userService.SetResetToken(ctx, user.ID, digest, time.Now().Add(s.cfg.ResetPasswordTTL)); err != nil {
		return nil, err
	}
	return &PasswordReset{User: user, Token: token}, nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	return s.userService.ResetPasswordByToken(ctx, auth.HashResetToken(token), newPassword)
}
