package service

import (
	"context"
	"testing"
	"time"

	"sweatpoints/fitness-app/internal/repository/memory"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_AndLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewAuthService(store.Users(), "test-secret", time.Hour)

	user, err := svc.Register(ctx, "Alex", "alex@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	token, loggedIn, err := svc.Login(ctx, "alex@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	require.NotEmpty(t, token)

	// The token carries the user id under "uid".
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID.Hex(), claims["uid"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewAuthService(store.Users(), "test-secret", time.Hour)

	_, err := svc.Register(ctx, "Alex", "alex@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "alex@example.com", "different")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewAuthService(store.Users(), "test-secret", time.Hour)

	_, err := svc.Register(ctx, "Alex", "alex@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alex@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
