package authService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/data/repository"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type NewUser struct {
	Email    string
	Password string
	FullName string
	Role     model.Role
}

type UserUpdate struct {
	Email    *string
	FullName *string
	Password *string
	Role     *model.Role
}

type UserQuery struct {
	Search string
	Page   int
	Limit  int
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Register signs up a regular user. Roles other than USER are granted through CreateUser only.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (model.User, error) {
	return s.insertUser(ctx, "AuthService.Register", NewUser{
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     model.RoleUser,
	})
}

// CreateUser adds an account with any role; admin only.
func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	return s.insertUser(ctx, "AuthService.CreateUser", in)
}

func (s *AuthService) insertUser(ctx context.Context, op string, in NewUser) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	hash, err := hashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.InsertUser(ctx, model.User{
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         in.Role,
		PasswordHash: hash,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		slog.Info("email already registered", slog.String("rqID", rqID), slog.String("op", op))
		return model.User{}, service.ErrAlreadyExists
	}
	if err != nil {
		return model.User{}, err
	}

	slog.Info("user created", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", id), slog.String("role", string(in.Role)))

	return s.GetUser(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context, q UserQuery) (model.UserPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}

	users, total, err := s.repo.ListUsers(ctx, model.UserFilter{
		Search: q.Search,
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return model.UserPage{}, err
	}

	return model.UserPage{
		Users: users,
		Meta:  model.PageMeta{Page: q.Page, Limit: q.Limit, Total: total},
	}, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, service.ErrNotFound
	}
	return user, err
}

func (s *AuthService) UpdateUser(ctx context.Context, id int64, in UserUpdate) (model.User, error) {
	patch := model.UserPatch{
		Email:    in.Email,
		FullName: in.FullName,
		Role:     in.Role,
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	user, err := s.repo.UpdateUser(ctx, id, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.User{}, service.ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return model.User{}, service.ErrAlreadyExists
	}
	return user, err
}

// DeactivateUser soft-deletes a user: the row stays, sign-in and existing tokens stop working.
func (s *AuthService) DeactivateUser(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return fmt.Errorf("%w: you cannot deactivate your own account", service.ErrInvalidInput)
	}

	err := s.repo.SetUserStatus(ctx, id, false)
	if errors.Is(err, repository.ErrNotFound) {
		return service.ErrNotFound
	}
	if err != nil {
		return err
	}

	slog.Info("user deactivated", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int64("userID", id), slog.Int64("by", actorID))
	return nil
}
