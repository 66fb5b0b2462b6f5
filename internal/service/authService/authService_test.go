package authService

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/data/repository"
	"github.com/KotFed0t/crypto_vault_tracker/internal/auth"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) InsertUser(ctx context.Context, user model.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockRepo) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockRepo) ListUsers(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.User), args.Int(1), args.Error(2)
}

func (m *mockRepo) UpdateUser(ctx context.Context, id int64, patch model.UserPatch) (model.User, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockRepo) SetUserStatus(ctx context.Context, id int64, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.AdminEmail = "admin@vault.io"
	cfg.Auth.AdminPassword = "s3cret!"
	cfg.Auth.AdminFullName = "Super Admin"
	return cfg
}

func storedUser(t *testing.T, password string) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return model.User{ID: 3, Email: "admin@vault.io", Role: model.RoleAdmin, PasswordHash: string(hash), IsActive: true}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	stored := storedUser(t, "s3cret!")
	repo.On("GetUserByEmail", ctx, "admin@vault.io").Return(stored, nil)
	repo.On("GetUserByID", ctx, int64(3)).Return(stored, nil)

	s := New(testConfig(), repo, auth.NewTokens("secret"))

	token, user, err := s.Login(ctx, "admin@vault.io", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)

	claims, err := s.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	repo.On("GetUserByEmail", ctx, "admin@vault.io").Return(storedUser(t, "s3cret!"), nil)

	_, _, err := New(testConfig(), repo, auth.NewTokens("secret")).Login(ctx, "admin@vault.io", "nope")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	repo.On("GetUserByEmail", ctx, "ghost@vault.io").Return(model.User{}, repository.ErrNotFound)

	_, _, err := New(testConfig(), repo, auth.NewTokens("secret")).Login(ctx, "ghost@vault.io", "x")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestLogin_DeactivatedUser(t *testing.T) {
	ctx := context.Background()
	stored := storedUser(t, "s3cret!")
	stored.IsActive = false
	repo := &mockRepo{}
	repo.On("GetUserByEmail", ctx, "admin@vault.io").Return(stored, nil)

	_, _, err := New(testConfig(), repo, auth.NewTokens("secret")).Login(ctx, "admin@vault.io", "s3cret!")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthenticate_UsesCurrentAccountState(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewTokens("secret")
	token, err := tokens.Sign(auth.Claims{UserID: 5, Email: "ann@vault.io", Role: model.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	t.Run("demoted role wins over the token", func(t *testing.T) {
		repo := &mockRepo{}
		repo.On("GetUserByID", ctx, int64(5)).Return(model.User{ID: 5, Role: model.RoleUser, IsActive: true}, nil)

		claims, err := New(testConfig(), repo, tokens).Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, claims.Role)
	})

	t.Run("deactivated user", func(t *testing.T) {
		repo := &mockRepo{}
		repo.On("GetUserByID", ctx, int64(5)).Return(model.User{ID: 5, Role: model.RoleAdmin}, nil)

		_, err := New(testConfig(), repo, tokens).Authenticate(ctx, token)
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("removed user", func(t *testing.T) {
		repo := &mockRepo{}
		repo.On("GetUserByID", ctx, int64(5)).Return(model.User{}, repository.ErrNotFound)

		_, err := New(testConfig(), repo, tokens).Authenticate(ctx, token)
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestAuthenticate_Rejects(t *testing.T) {
	s := New(testConfig(), &mockRepo{}, auth.NewTokens("secret"))

	_, err := s.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = s.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts hashed admin", func(t *testing.T) {
		repo := &mockRepo{}
		repo.On("InsertUser", ctx, mock.MatchedBy(func(u model.User) bool {
			return u.Email == "admin@vault.io" && u.Role == model.RoleAdmin &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret!")) == nil
		})).Return(int64(1), nil)

		require.NoError(t, New(testConfig(), repo, auth.NewTokens("secret")).SeedAdmin(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("existing admin is ignored", func(t *testing.T) {
		repo := &mockRepo{}
		repo.On("InsertUser", ctx, mock.Anything).Return(int64(0), repository.ErrAlreadyExists)

		assert.NoError(t, New(testConfig(), repo, auth.NewTokens("secret")).SeedAdmin(ctx))
	})

	t.Run("other errors surface", func(t *testing.T) {
		repo := &mockRepo{}
		repo.On("InsertUser", ctx, mock.Anything).Return(int64(0), errors.New("db down"))

		assert.Error(t, New(testConfig(), repo, auth.NewTokens("secret")).SeedAdmin(ctx))
	})

	t.Run("not configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.Auth.AdminPassword = ""
		repo := &mockRepo{}

		assert.NoError(t, New(cfg, repo, auth.NewTokens("secret")).SeedAdmin(ctx))
		repo.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})
}
