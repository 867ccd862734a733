package usertoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
)

// Repository persists user tokens.
type Repository interface {
	Get(ctx context.Context, userID int64, typ Type) (*Token, error)
	Create(ctx context.Context, t *Token) error
	Delete(ctx context.Context, userID int64, typ Type) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the live token of the given type for a user.
func (r *SQLiteRepository) Get(ctx context.Context, userID int64, typ Type) (*Token, error) {
	const query = `SELECT id, user_id, token, token_type, expiry, created_on
		FROM user_tokens WHERE user_id = ? AND token_type = ? AND is_deleted = 0`

	var t Token
	var createdOn string
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query, userID, string(typ)).
		Scan(&t.ID, &t.UserID, &t.Token, &t.Type, &t.ExpiryMinutes, &createdOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("querying user token: %w", err)
	}

	if t.CreatedAt, err = database.ParseTime(createdOn); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a token. The caller removes any previous token of the same
// type first; the unique (user_id, token_type) index rejects a second one.
func (r *SQLiteRepository) Create(ctx context.Context, t *Token) error {
	const query = `INSERT INTO user_tokens (user_id, token, token_type, expiry, created_on)
		VALUES (?, ?, ?, ?, ?)`

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		t.UserID, t.Token, string(t.Type), t.ExpiryMinutes, database.FormatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting user token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user token id: %w", err)
	}
	t.ID = id
	return nil
}

// Delete removes the token of the given type for a user, if any.
func (r *SQLiteRepository) Delete(ctx context.Context, userID int64, typ Type) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM user_tokens WHERE user_id = ? AND token_type = ?`, userID, string(typ))
	if err != nil {
		return fmt.Errorf("deleting user token: %w", err)
	}
	return nil
}
