package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"greendrake/realty/internal/auth"
	"greendrake/realty/internal/config"
	"greendrake/realty/internal/models"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JwtSecret:        "access-secret",
		JwtRefreshSecret: "refresh-secret",
		JwtTTL:           15 * time.Minute,
		JwtRefreshTTL:    24 * time.Hour,
		ResetPasswordTTL: time.Hour,
		PasswordRegexp:   "^.{6,}$",
	}
}

func testUser(t *testing.T, role models.Role, password string) *models.User {
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return &models.User{
		Base:         models.NewBase(),
		Name:         "Jane",
		Email:        "jane@example.com",
		PasswordHash: hash,
		Role:         role,
	}
}

func TestAuthService_LoginIssuesTokenPair(t *testing.T) {
	ctx := context.Background()
	cfg := testAuthConfig()
	users := new(mockUserService)
	user := testUser(t, models.RoleAgent, "secret123")
	users.On("FindByEmail", ctx, "jane@example.com").Return(user, nil)

	res, err := NewAuthService(cfg, users).Login(ctx, "jane@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user, res.User)

	claims, err := auth.ValidateJWT(res.AccessToken, cfg.JwtSecret, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "agent", claims.Role)

	_, err = auth.ValidateJWT(res.RefreshToken, cfg.JwtRefreshSecret, auth.TokenTypeRefresh)
	require.NoError(t, err)
	// The access token must not be usable as a refresh token.
	_, err = auth.ValidateJWT(res.AccessToken, cfg.JwtRefreshSecret, auth.TokenTypeRefresh)
	assert.Error(t, err)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserService)
	users.On("FindByEmail", ctx, "nobody@example.com").Return(nil, ErrNotFound)
	users.On("FindByEmail", ctx, "jane@example.com").Return(testUser(t, models.RoleClient, "secret123"), nil)
	svc := NewAuthService(testAuthConfig(), users)

	_, err := svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginPropagatesStorageErrors(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserService)
	boom := errors.New("connection reset")
	users.On("FindByEmail", ctx, "jane@example.com").Return(nil, boom)

	_, err := NewAuthService(testAuthConfig(), users).Login(ctx, "jane@example.com", "secret123")
	assert.ErrorIs(t, err, boom)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserService)
	user := testUser(t, models.RoleClient, "secret123")
	users.On("CreateUser", ctx, "Jane", "jane@example.com", "secret123", models.Role(""), "").Return(user, nil)

	res, err := NewAuthService(testAuthConfig(), users).Register(ctx, RegisterInput{
		Name: "Jane", Email: "jane@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	users.AssertExpectations(t)
}

func TestAuthService_RegisterEmailTaken(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserService)
	users.On("CreateUser", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, ErrEmailExists)

	_, err := NewAuthService(testAuthConfig(), users).Register(ctx, RegisterInput{Email: "jane@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	cfg := testAuthConfig()
	users := new(mockUserService)
	user := testUser(t, models.RoleClient, "secret123")
	users.On("FindByID", ctx, user.ID).Return(user, nil)
	svc := NewAuthService(cfg, users)

	refresh, err := auth.GenerateJWT(user.ID, "client", auth.TokenTypeRefresh, cfg.JwtRefreshSecret, time.Hour)
	require.NoError(t, err)

	res, err := svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, res.RefreshToken, "refresh token should rotate")

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("access token rejected", func(t *testing.T) {
		access, err := auth.GenerateJWT(user.ID, "client", auth.TokenTypeAccess, cfg.JwtSecret, time.Hour)
		require.NoError(t, err)
		_, err = svc.Refresh(ctx, access)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired token", func(t *testing.T) {
		expired, err := auth.GenerateJWT(user.ID, "client", auth.TokenTypeRefresh, cfg.JwtRefreshSecret, -time.Minute)
		require.NoError(t, err)
		_, err = svc.Refresh(ctx, expired)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("deleted user", func(t *testing.T) {
		ghost := primitive.NewObjectID()
		users.On("FindByID", ctx, ghost).Return(nil, ErrNotFound)
		tok, err := auth.GenerateJWT(ghost, "client", auth.TokenTypeRefresh, cfg.JwtRefreshSecret, time.Hour)
		require.NoError(t, err)
		_, err = svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthService_RequestPasswordReset(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserService)
	user := testUser(t, models.RoleClient, "secret123")
	users.On("FindByEmail", ctx, "nobody@example.com").Return(nil, ErrNotFound)
	users.On("FindByEmail", ctx, "jane@example.com").Return(user, nil)

	var storedDigest string
	users.On("SetResetToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { storedDigest = args.String(2) }).
		Return(nil)
	svc := NewAuthService(testAuthConfig(), users)

	reset, err := svc.RequestPasswordReset(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, reset)

	reset, err = svc.RequestPasswordReset(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, reset)
	assert.Len(t, reset.Token, 64)
	assert.Equal(t, auth.HashResetToken(reset.Token), storedDigest)
	assert.NotEqual(t, reset.Token, storedDigest, "only the digest may be stored")
}

func TestAuthService_ResetPasswordHashesToken(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserService)
	user := testUser(t, models.RoleClient, "secret123")
	users.On("ResetPasswordByToken", ctx, auth.HashResetToken("plain-token"), "newpass1").Return(user, nil)
	svc := NewAuthService(testAuthConfig(), users)

	got, err := svc.ResetPassword(ctx, "plain-token", "newpass1")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = svc.ResetPassword(ctx, "", "newpass1")
	assert.ErrorIs(t, err, ErrInvalidToken)
	users.AssertExpectations(t)
}
