package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Provider is the identity provider consumed by the HTTP layer.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*User, Token, error)
	SignOut(ctx context.Context, sessionID string) error
	// FreshIDToken returns current when it is still valid and outside the
	// refresh window, otherwise a newly issued token for userID.
	FreshIDToken(ctx context.Context, userID int64, current string) (Token, error)
}

// Service is the local Provider: bcrypt password hashes in PostgreSQL and
// HS256 identity tokens.
type Service struct {
	repo   Repository
	tokens *Tokens
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *Tokens) *Service {
	return &Service{repo: repo, tokens: tokens}
}

var _ Provider = (*Service)(nil)

// Tokens exposes the token issuer for bearer authentication.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// SignIn validates email/password credentials and issues an identity token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, Token, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, Token{}, &ProviderError{Code: CodeUserNotFound, Err: err}
		}
		return nil, Token{}, &ProviderError{Code: CodeInternal, Err: err}
	}
	if !user.IsActive {
		return nil, Token{}, &ProviderError{Code: CodeNotAuthorized}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, Token{}, &ProviderError{Code: CodeNotAuthorized}
	}
	token, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, Token{}, &ProviderError{Code: CodeInternal, Err: err}
	}
	return user, token, nil
}

// SignOut forgets the server-side record of sessionID.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, sessionID)
}

// FreshIDToken re-issues the token of userID when needed. Inactive or removed
// users get a NotAuthorized provider error.
func (s *Service) FreshIDToken(ctx context.Context, userID int64, current string) (Token, error) {
	if current != "" {
		if claims, err := s.tokens.Verify(current); err == nil && !s.tokens.NeedsRefresh(claims) {
			if id, _ := claims.UserID(); id == userID {
				return Token{Value: current, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
			}
		}
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Token{}, &ProviderError{Code: CodeResourceNotFound, Err: err}
		}
		return Token{}, &ProviderError{Code: CodeInternal, Err: err}
	}
	if !user.IsActive {
		return Token{}, &ProviderError{Code: CodeNotAuthorized}
	}
	return s.tokens.Issue(*user)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}
