package authService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/data/repository"
	"github.com/KotFed0t/crypto_vault_tracker/internal/auth"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	InsertUser(ctx context.Context, user model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)
	UpdateUser(ctx context.Context, id int64, patch model.UserPatch) (model.User, error)
	SetUserStatus(ctx context.Context, id int64, active bool) error
}

type Tokens interface {
	Sign(claims auth.Claims, ttl time.Duration) (string, error)
	Verify(raw string) (auth.Claims, error)
}

type AuthService struct {
	cfg    *config.Config
	repo   Repository
	tokens Tokens
}

func New(cfg *config.Config, repo Repository, tokens Tokens) *AuthService {
	return &AuthService{cfg: cfg, repo: repo, tokens: tokens}
}

// Login returns a signed session token for valid credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("login for unknown email", slog.String("rqID", rqID), slog.String("op", "AuthService.Login"))
			return "", model.User{}, service.ErrUnauthorized
		}
		return "", model.User{}, err
	}

	if !user.IsActive {
		slog.Info("login for deactivated user", slog.String("rqID", rqID), slog.String("op", "AuthService.Login"), slog.Int64("userID", user.ID))
		return "", model.User{}, service.ErrUnauthorized
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Info("login with wrong password", slog.String("rqID", rqID), slog.String("op", "AuthService.Login"), slog.Int64("userID", user.ID))
		return "", model.User{}, service.ErrUnauthorized
	}

	token, err := s.tokens.Sign(auth.Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, s.cfg.Auth.TokenTTL)
	if err != nil {
		return "", model.User{}, err
	}

	return token, user, nil
}

// Authenticate verifies a session token and returns its claims with the user's current role.
// Tokens of deactivated or removed users are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Claims, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if token == "" {
		return auth.Claims{}, service.ErrUnauthorized
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		slog.Debug("token rejected", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return auth.Claims{}, service.ErrUnauthorized
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return auth.Claims{}, err
	}
	claims.Role = user.Role

	return claims, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (model.User, error) {
	return s.activeUser(ctx, userID)
}

func (s *AuthService) activeUser(ctx context.Context, userID int64) (model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrUnauthorized
		}
		return model.User{}, err
	}
	if !user.IsActive {
		return model.User{}, service.ErrUnauthorized
	}
	return user, nil
}

// SeedAdmin creates the configured admin once. An existing account is left untouched.
func (s *AuthService) SeedAdmin(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if s.cfg.Auth.AdminEmail == "" || s.cfg.Auth.AdminPassword == "" {
		slog.Info("admin credentials not configured, skip seeding", slog.String("rqID", rqID))
		return nil
	}

	hash, err := hashPassword(s.cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = s.repo.InsertUser(ctx, model.User{
		Email:        s.cfg.Auth.AdminEmail,
		FullName:     s.cfg.Auth.AdminFullName,
		Role:         model.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			slog.Info("admin already exists", slog.String("rqID", rqID), slog.String("op", "AuthService.SeedAdmin"))
			return nil
		}
		return fmt.Errorf("insert admin: %w", err)
	}

	slog.Info("admin seeded", slog.String("rqID", rqID), slog.String("op", "AuthService.SeedAdmin"))
	return nil
}
