package user

import (
	"context"
	"errors"

	"github.com/nerrad567/potentiostat-core/internal/auth"
)

// Directory resolves usernames to auth accounts.
type Directory struct {
	repo Repository
}

// NewDirectory creates a Directory backed by repo.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// FindUser implements auth.UserDirectory.
func (d *Directory) FindUser(ctx context.Context, username string) (*auth.Account, error) {
	u, err := d.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, err
	}
	return &auth.Account{Principal: u.Principal(), Credential: u.Password}, nil
}
