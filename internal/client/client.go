// Package client manages instrument accounts. A client authenticates with
// an identifier and secret and runs the experiments targeted at it.
package client

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/nerrad567/potentiostat-core/internal/auth"
)

// Domain errors for the client package.
var (
	// ErrClientNotFound is returned when no live client matches the lookup.
	ErrClientNotFound = errors.New("client: not found")

	// ErrClientExists is returned when an identifier is already registered.
	ErrClientExists = errors.New("client: already exists")
)

// Client is a machine principal.
type Client struct {
	ID         int64
	Identifier string
	Secret     auth.Credential
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// Principal returns the auth view of c. Clients never carry role flags.
func (c *Client) Principal() auth.Principal {
	return auth.Principal{Kind: auth.PrincipalClient, ID: c.ID, Name: c.Identifier}
}

// Response is the public representation of a client.
type Response struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
}

// ToResponse maps c to its public representation.
func ToResponse(c *Client) Response {
	return Response{ID: c.ID, Identifier: c.Identifier}
}

// CreateRequest registers a client.
type CreateRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// Validate checks the request shape.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required.Error("Client identifier cannot be null")),
		validation.Field(&r.Secret, validation.Required.Error("Client secret cannot be null")),
	)
}

// Directory resolves client identifiers to auth accounts.
type Directory struct {
	repo Repository
}

// NewDirectory creates a Directory backed by repo.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// FindClient implements auth.ClientDirectory.
func (d *Directory) FindClient(ctx context.Context, identifier string) (*auth.Account, error) {
	c, err := d.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, err
	}
	return &auth.Account{Principal: c.Principal(), Credential: c.Secret}, nil
}
