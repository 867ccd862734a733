package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
)

// Service implements client administration. Every operation is admin only.
type Service struct {
	repo Repository
}

// NewService creates a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a client with a hashed secret.
func (s *Service) Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Response, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := apperr.FromValidation(req.Validate()); err != nil {
		return nil, err
	}

	cred, err := auth.HashSecret(req.Secret)
	if err != nil {
		return nil, err
	}

	c := &Client{Identifier: req.Identifier, Secret: cred}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrClientExists) {
			return nil, apperr.Field("identifier", fmt.Sprintf("Client with identifier: '%s' already registered", req.Identifier))
		}
		return nil, err
	}

	resp := ToResponse(c)
	return &resp, nil
}

// Search returns a page of clients filtered by identifier substring.
func (s *Service) Search(ctx context.Context, p auth.Principal, identifier string, page pagination.Request) (pagination.Page[Response], error) {
	if err := auth.RequireAdmin(p); err != nil {
		return pagination.Page[Response]{}, err
	}

	clients, total, err := s.repo.Search(ctx, identifier, page)
	if err != nil {
		return pagination.Page[Response]{}, err
	}

	content := make([]Response, len(clients))
	for i := range clients {
		content[i] = ToResponse(&clients[i])
	}
	return pagination.New(content, page, total), nil
}

// Get returns a client by id.
func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Response, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, apperr.NotFound("Client with id: %d does not exist", id)
		}
		return nil, err
	}

	resp := ToResponse(c)
	return &resp, nil
}

// ByIdentifier loads a client for other services, mapping absence to the
// caller-facing NotFound error.
func ByIdentifier(ctx context.Context, repo Repository, identifier string) (*Client, error) {
	c, err := repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, apperr.NotFound("Client with client identifier: %s does not exist", identifier)
		}
		return nil, err
	}
	return c, nil
}
