package auth

import (
	"context"
	"errors"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
)

// Sentinel errors.
var (
	// ErrTokenInvalid is the single result of every failed bearer token check.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrPrincipalNotFound is returned by directories for unknown or
	// soft-deleted accounts.
	ErrPrincipalNotFound = errors.New("principal not found")
)

// PrincipalKind tags which kind of account a Principal is.
type PrincipalKind int

// Principal kinds.
const (
	PrincipalNone PrincipalKind = iota
	PrincipalUser
	PrincipalClient
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalUser:
		return "user"
	case PrincipalClient:
		return "client"
	default:
		return "none"
	}
}

// Principal is the resolved caller of a request: either a User or a Client.
// Clients never carry role flags.
type Principal struct {
	Kind PrincipalKind
	ID   int64
	// Name is the username for users and the identifier for clients.
	Name    string
	IsAdmin bool
	IsStaff bool
}

// IsUser reports whether p is a user principal.
func (p Principal) IsUser() bool { return p.Kind == PrincipalUser }

// IsClient reports whether p is a client principal.
func (p Principal) IsClient() bool { return p.Kind == PrincipalClient }

// Account pairs a principal with its stored credential.
type Account struct {
	Principal
	Credential Credential
}

// UserDirectory finds user accounts by username.
type UserDirectory interface {
	FindUser(ctx context.Context, username string) (*Account, error)
}

// ClientDirectory finds client accounts by identifier.
type ClientDirectory interface {
	FindClient(ctx context.Context, identifier string) (*Account, error)
}

// RequireUser returns nil when p is a user, otherwise a Forbidden error
// without a message.
func RequireUser(p Principal) error {
	if !p.IsUser() {
		return apperr.Forbidden("")
	}
	return nil
}

// RequireClient returns nil when p is a client, otherwise a Forbidden error
// without a message.
func RequireClient(p Principal) error {
	if !p.IsClient() {
		return apperr.Forbidden("")
	}
	return nil
}

// RequireAdmin returns nil when p is an admin user, otherwise Forbidden
// naming the caller.
func RequireAdmin(p Principal) error {
	if err := RequireUser(p); err != nil {
		return err
	}
	if !p.IsAdmin {
		return apperr.Forbidden(p.Name)
	}
	return nil
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx. The zero Principal
// (kind PrincipalNone) is returned when there is none.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal) //nolint:errcheck // zero value is the intended fallback
	return p
}
