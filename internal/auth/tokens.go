package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by identity tokens.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	return id, err == nil && id > 0
}

// Tokens issues and verifies HS256 identity tokens.
type Tokens struct {
	secret  []byte
	ttl     time.Duration
	refresh time.Duration
	now     func() time.Time
}

// NewTokens constructs Tokens. Tokens within a fifth of ttl of expiry are
// re-issued by Fresh.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, refresh: ttl / 5, now: time.Now}
}

// Issue signs a token for user.
func (t *Tokens) Issue(user User) (Token, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    "dagelec",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp.UTC().Truncate(time.Second)}, nil
}

// Verify parses raw and checks its signature and expiry.
func (t *Tokens) Verify(raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithIssuer("dagelec"))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if _, ok := claims.UserID(); !ok {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// NeedsRefresh reports whether claims expire within the refresh window.
func (t *Tokens) NeedsRefresh(claims Claims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Sub(t.now()) <= t.refresh
}
