package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

// User represents an authenticated user account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token is a signed identity token.
type Token struct {
	Value     string    `json:"id_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Provider error codes. The first three are credential problems.
const (
	CodeNotAuthorized    = "NotAuthorizedException"
	CodeUserNotFound     = "UserNotFoundException"
	CodeResourceNotFound = "ResourceNotFoundException"
	CodeInternal         = "InternalErrorException"
)

// User-facing sign-in messages.
const (
	MessageBadCredentials = "Usuario o contraseña incorrectos"
	MessageGeneric        = "Algo salió mal, intenta nuevamente"
)

var (
	// ErrInvalidToken indicates an identity token that failed verification.
	ErrInvalidToken = fmt.Errorf("auth: invalid token: %w", httpx.ErrUnauthorized)
	// ErrUserNotFound is returned by repositories for unknown users.
	ErrUserNotFound = fmt.Errorf("auth: user not found: %w", httpx.ErrNotFound)
)

// ProviderError is a failure reported by the identity provider.
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return "auth: " + e.Code + ": " + e.Err.Error()
	}
	return "auth: " + e.Code
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Credential reports whether the failure is about the supplied credentials.
func (e *ProviderError) Credential() bool {
	switch e.Code {
	case CodeNotAuthorized, CodeUserNotFound, CodeResourceNotFound:
		return true
	}
	return false
}

// UserMessage turns a sign-in failure into the message shown to the user.
func UserMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Credential() {
		return MessageBadCredentials
	}
	return MessageGeneric
}
