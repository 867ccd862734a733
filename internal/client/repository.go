package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
)

// Repository defines the interface for client persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Client, error)
	GetByIdentifier(ctx context.Context, identifier string) (*Client, error)
	Search(ctx context.Context, identifier string, page pagination.Request) ([]Client, int, error)
	Create(ctx context.Context, c *Client) error
}

const clientColumns = `id, identifier, secret_hash, secret_salt, created_on, updated_on`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a live client by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ? AND is_deleted = 0`
	return r.getOne(ctx, query, id)
}

// GetByIdentifier retrieves a live client by identifier.
func (r *SQLiteRepository) GetByIdentifier(ctx context.Context, identifier string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE identifier = ? AND is_deleted = 0`
	return r.getOne(ctx, query, identifier)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*Client, error) {
	c, err := scanClient(database.Conn(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("querying client: %w", err)
	}
	return c, nil
}

// Search returns one page of clients whose identifier contains identifier
// (all clients when empty), plus the total match count.
func (r *SQLiteRepository) Search(ctx context.Context, identifier string, page pagination.Request) ([]Client, int, error) {
	where := `WHERE is_deleted = 0 AND (? = '' OR instr(identifier, ?) > 0)`
	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients `+where, identifier, identifier).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting clients: %w", err)
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients `+where+` ORDER BY id LIMIT ? OFFSET ?`,
		identifier, identifier, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("searching clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning client: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating clients: %w", err)
	}
	return clients, total, nil
}

// Create inserts a client and sets its ID and CreatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, c *Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO clients (identifier, secret_hash, secret_salt, created_on) VALUES (?, ?, ?, ?)`,
		c.Identifier, c.Secret.Hash, c.Secret.Salt, database.FormatTime(c.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrClientExists
		}
		return fmt.Errorf("inserting client: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading client id: %w", err)
	}
	c.ID = id
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (*Client, error) {
	var c Client
	var createdOn string
	var updatedOn sql.NullString

	if err := row.Scan(&c.ID, &c.Identifier, &c.Secret.Hash, &c.Secret.Salt, &createdOn, &updatedOn); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = database.ParseTime(createdOn); err != nil {
		return nil, err
	}
	if updatedOn.Valid {
		t, err := database.ParseTime(updatedOn.String)
		if err != nil {
			return nil, err
		}
		c.UpdatedAt = &t
	}
	return &c, nil
}
