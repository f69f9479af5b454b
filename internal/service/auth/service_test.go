package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/internal/apperr"
	"planboard/internal/model"
	"planboard/internal/service/auth"
	"planboard/internal/testutil"
	"planboard/internal/util"
)

const secret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	users := testutil.NewFakeUserStore()
	svc := auth.NewService(users, secret, zap.NewNop())
	ctx := context.Background()

	u, err := svc.Register(ctx, "Alice@Example.com", "s3cret-pass", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email, "emails are normalized")
	assert.False(t, u.Placeholder)

	token, err := svc.Login(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	userID, err := util.ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	_, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegister_Validation(t *testing.T) {
	svc := auth.NewService(testutil.NewFakeUserStore(), secret, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "s3cret-pass", "X")
	require.True(t, apperr.IsValidation(err))

	_, err = svc.Register(ctx, "x@example.com", "short", "X")
	require.True(t, apperr.IsValidation(err))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := auth.NewService(testutil.NewFakeUserStore(), secret, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "s3cret-pass", "A")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "a@example.com", "s3cret-pass", "A again")
	require.True(t, apperr.IsConflict(err))
}

func TestRegister_ClaimsPlaceholder(t *testing.T) {
	placeholder := &model.User{
		ID:           "ph-1",
		Email:        "ghost@example.com",
		Name:         "Ghost",
		Placeholder:  true,
		PasswordHash: model.PlaceholderPasswordHash,
	}
	users := testutil.NewFakeUserStore(placeholder)
	svc := auth.NewService(users, secret, zap.NewNop())
	ctx := context.Background()

	// cannot log in before claiming
	_, err := svc.Login(ctx, "ghost@example.com", model.PlaceholderPasswordHash)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	claimed, err := svc.Register(ctx, "ghost@example.com", "s3cret-pass", "Real Ghost")
	require.NoError(t, err)
	assert.Equal(t, "ph-1", claimed.ID, "claiming keeps the id so references stay valid")
	assert.False(t, claimed.Placeholder)
	assert.Equal(t, "Real Ghost", claimed.Name)

	_, err = svc.Login(ctx, "ghost@example.com", "s3cret-pass")
	require.NoError(t, err)
}
