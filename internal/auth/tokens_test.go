package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type userRepo struct {
	user *User
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.user, nil
}

func (r userRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, ErrUserNotFound
	}
	return r.user, nil
}

func (r userRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (r userRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	tok, err := tokens.Issue(User{ID: 5, Email: "a@b.co"})
	require.NoError(t, err)

	claims, err := tokens.Verify(tok.Value)
	require.NoError(t, err)
	id, ok := claims.UserID()
	require.True(t, ok)
	require.Equal(t, int64(5), id)
	require.Equal(t, "a@b.co", claims.Email)

	_, err = NewTokens("other", time.Hour).Verify(tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Verify(tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestFreshIDTokenRefreshWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tokens := NewTokens("s3cret", time.Hour)
	tokens.now = func() time.Time { return base }
	svc := NewService(userRepo{user: &User{ID: 3, Email: "c@d.co", IsActive: true}}, tokens)

	first, err := tokens.Issue(User{ID: 3, Email: "c@d.co"})
	require.NoError(t, err)

	tokens.now = func() time.Time { return base.Add(30 * time.Minute) }
	same, err := svc.FreshIDToken(context.Background(), 3, first.Value)
	require.NoError(t, err)
	require.Equal(t, first.Value, same.Value)

	tokens.now = func() time.Time { return base.Add(50 * time.Minute) }
	renewed, err := svc.FreshIDToken(context.Background(), 3, first.Value)
	require.NoError(t, err)
	require.NotEqual(t, first.Value, renewed.Value)
	require.True(t, renewed.ExpiresAt.After(first.ExpiresAt))

	other, err := svc.FreshIDToken(context.Background(), 3, "")
	require.NoError(t, err)
	require.NotEmpty(t, other.Value)

	// first belongs to user 3, so user 4 is looked up and does not exist.
	_, err = svc.FreshIDToken(context.Background(), 4, first.Value)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, CodeResourceNotFound, pe.Code)
	require.Equal(t, MessageBadCredentials, UserMessage(err))
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, MessageBadCredentials, UserMessage(&ProviderError{Code: CodeNotAuthorized}))
	require.Equal(t, MessageBadCredentials, UserMessage(&ProviderError{Code: CodeUserNotFound}))
	require.Equal(t, MessageGeneric, UserMessage(&ProviderError{Code: CodeInternal}))
	require.Equal(t, MessageGeneric, UserMessage(errors.New("boom")))
}
