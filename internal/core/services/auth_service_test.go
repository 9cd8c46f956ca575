package services

import (
	"context"
	"testing"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/adapters/persistence/repositories"
	"libr-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()

	db := newTestDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test_access_secret",
			RefreshSecret:    "test_refresh_secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
	return NewAuthService(
		repositories.NewUserRepository(db),
		repositories.NewRefreshTokenRepository(db),
		cfg,
	)
}

func registerInput(email string) *RegisterInput {
	return &RegisterInput{
		FName:    "Test",
		LName:    "Reader",
		Age:      25,
		State:    models.StateStudent,
		Username: "reader",
		Email:    email,
		Password: "supersecret1",
		Address:  "1 Test St",
		Phone:    "555-0000",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("new accounts start as unsubscribed users", func(t *testing.T) {
		svc := newAuthService(t)

		resp, err := svc.Register(ctx, registerInput("Reader@Libr.Local"))
		require.NoError(t, err)

		assert.Equal(t, models.RoleUser, resp.User.Role)
		assert.False(t, resp.User.IsSubscribed)
		assert.Equal(t, "reader@libr.local", resp.User.Email)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		claims, err := svc.ValidateAccessToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)
		assert.Equal(t, models.RoleUser, claims.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := newAuthService(t)

		_, err := svc.Register(ctx, registerInput("reader@libr.local"))
		require.NoError(t, err)

		input := registerInput("READER@libr.local")
		input.Username = "reader2"
		_, err = svc.Register(ctx, input)
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	})

	t.Run("weak password", func(t *testing.T) {
		svc := newAuthService(t)

		input := registerInput("reader@libr.local")
		input.Password = "short"
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("invalid state", func(t *testing.T) {
		svc := newAuthService(t)

		input := registerInput("reader@libr.local")
		input.State = "wizard"
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	_, err := svc.Register(ctx, registerInput("reader@libr.local"))
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, &LoginInput{
			Email:    "Reader@Libr.Local",
			Password: "supersecret1",
		})
		require.NoError(t, err)
		assert.Equal(t, "reader@libr.local", resp.User.Email)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginInput{
			Email:    "reader@libr.local",
			Password: "wrongpassword",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginInput{
			Email:    "ghost@libr.local",
			Password: "supersecret1",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation revokes the old token", func(t *testing.T) {
		svc := newAuthService(t)

		reg, err := svc.Register(ctx, registerInput("reader@libr.local"))
		require.NoError(t, err)

		refreshed, err := svc.RefreshToken(ctx, reg.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)
		assert.NotEqual(t, reg.RefreshToken, refreshed.RefreshToken)

		// The rotated-out token must be unusable
		_, err = svc.RefreshToken(ctx, reg.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)

		// The fresh one still works
		_, err = svc.RefreshToken(ctx, refreshed.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := newAuthService(t)

		_, err := svc.RefreshToken(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	reg, err := svc.Register(ctx, registerInput("reader@libr.local"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, reg.RefreshToken))

	_, err = svc.RefreshToken(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
