// Package usertoken issues and checks short-lived single-use tokens such
// as password reset codes. A user holds at most one token per type; issuing
// a new one replaces the old.
package usertoken

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
)

// Store issues, verifies and consumes tokens.
type Store struct {
	repo Repository
	tx   database.Transactor
	now  func() time.Time
}

// NewStore creates a Store.
func NewStore(repo Repository, tx database.Transactor) *Store {
	return &Store{repo: repo, tx: tx, now: time.Now}
}

// SetClock replaces the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Issue replaces any token of typ held by the user with a fresh random one
// of length characters drawn from charset.
func (s *Store) Issue(ctx context.Context, userID int64, length int, charset string, ttlMinutes int, typ Type) (*Token, error) {
	if ttlMinutes <= 0 {
		return nil, apperr.BadRequest("Expiry in minutes must be greater than 0")
	}

	value, err := randomString(length, charset)
	if err != nil {
		return nil, err
	}

	t := &Token{
		UserID:        userID,
		Token:         value,
		Type:          typ,
		ExpiryMinutes: ttlMinutes,
		CreatedAt:     s.now(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, userID, typ); err != nil {
			return err
		}
		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("issuing %s token: %w", typ, err)
	}
	return t, nil
}

// Verify checks token against the user's live token of typ without
// consuming it. A missing or expired token is an error; a mismatch is
// reported as false.
func (s *Store) Verify(ctx context.Context, userID int64, token string, typ Type) (bool, error) {
	stored, err := s.live(ctx, userID, typ)
	if err != nil {
		return false, err
	}
	return matches(stored.Token, token), nil
}

// Consume verifies token and deletes it so it cannot be used again.
func (s *Store) Consume(ctx context.Context, userID int64, token string, typ Type) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		stored, err := s.live(ctx, userID, typ)
		if err != nil {
			return err
		}
		if !matches(stored.Token, token) {
			return apperr.BadRequest("Invalid user token")
		}
		return s.repo.Delete(ctx, userID, typ)
	})
}

func (s *Store) live(ctx context.Context, userID int64, typ Type) (*Token, error) {
	stored, err := s.repo.Get(ctx, userID, typ)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, apperr.BadRequest("User token for token type: %s does not exist for given user", typ)
		}
		return nil, err
	}
	if s.now().After(stored.ExpiresAt()) {
		return nil, apperr.BadRequest("User token has expired, please try again")
	}
	return stored, nil
}

func matches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// randomString draws length characters uniformly from charset.
func randomString(length int, charset string) (string, error) {
	if length <= 0 || charset == "" {
		return "", fmt.Errorf("generating token: invalid length %d or empty charset", length)
	}

	size := big.NewInt(int64(len(charset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generating token: %w", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}
