package usertoken

import (
	"errors"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
)

// Type is the purpose a token was issued for.
type Type string

// Token types.
const (
	TypeResetPassword Type = "RESET_PASSWORD"
)

// Letters is the charset used for password reset tokens.
const Letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrTokenNotFound is returned by the repository when no live token exists
// for a (user, type) pair.
var ErrTokenNotFound = errors.New("user token: not found")

// ParseType validates a token type received from a caller.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeResetPassword:
		return TypeResetPassword, nil
	default:
		return "", apperr.BadRequest("Invalid token type")
	}
}

// Token is a single-use secret bound to one user.
type Token struct {
	ID     int64
	UserID int64
	Token  string
	Type   Type
	// ExpiryMinutes is the lifetime measured from CreatedAt.
	ExpiryMinutes int
	CreatedAt     time.Time
}

// ExpiresAt returns the instant after which the token is no longer valid.
func (t *Token) ExpiresAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ExpiryMinutes) * time.Minute)
}
