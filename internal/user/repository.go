package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
)

// Repository defines the interface for user persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Search(ctx context.Context, q SearchQuery, page pagination.Request) ([]User, int, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
}

// userColumns is the SELECT column list for user queries.
const userColumns = `id, username, email, phone_number, first_name, middle_name, last_name,
	password_hash, password_salt, is_admin, is_staff, created_on, updated_on`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a live user by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND is_deleted = 0`
	return r.getOne(ctx, query, id)
}

// GetByUsername retrieves a live user by username.
func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? AND is_deleted = 0`
	return r.getOne(ctx, query, username)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	u, err := scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// Search returns one page of users matching every non-empty filter as a
// substring, plus the total match count.
func (r *SQLiteRepository) Search(ctx context.Context, q SearchQuery, page pagination.Request) ([]User, int, error) {
	conditions := []string{"is_deleted = 0"}
	var args []any

	for column, value := range map[string]string{
		"username":    q.Username,
		"email":       q.Email,
		"first_name":  q.FirstName,
		"middle_name": q.MiddleName,
		"last_name":   q.LastName,
	} {
		if value != "" {
			conditions = append(conditions, "instr("+column+", ?) > 0")
			args = append(args, value)
		}
	}
	where := "WHERE " + strings.Join(conditions, " AND ")
	conn := database.Conn(ctx, r.db)

	var total int
	//nolint:gosec // WHERE built from fixed column names and ? placeholders
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	//nolint:gosec // WHERE built from fixed column names and ? placeholders
	query := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY id LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating users: %w", err)
	}
	return users, total, nil
}

// Create inserts a user and sets its ID and CreatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (
			username, email, phone_number, first_name, middle_name, last_name,
			password_hash, password_salt, is_admin, is_staff, created_on
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		u.Username,
		nullableString(u.Email),
		nullableString(u.PhoneNumber),
		nullableString(u.FirstName),
		nullableString(u.MiddleName),
		nullableString(u.LastName),
		u.Password.Hash,
		u.Password.Salt,
		database.BoolToInt(u.IsAdmin),
		database.BoolToInt(u.IsStaff),
		database.FormatTime(u.CreatedAt),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	u.ID = id
	return nil
}

// Update writes every mutable column of u and stamps UpdatedAt.
func (r *SQLiteRepository) Update(ctx context.Context, u *User) error {
	now := time.Now().UTC()

	query := `
		UPDATE users SET
			username = ?, email = ?, phone_number = ?, first_name = ?, middle_name = ?,
			last_name = ?, password_hash = ?, password_salt = ?, is_admin = ?, is_staff = ?,
			updated_on = ?
		WHERE id = ? AND is_deleted = 0`

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		u.Username,
		nullableString(u.Email),
		nullableString(u.PhoneNumber),
		nullableString(u.FirstName),
		nullableString(u.MiddleName),
		nullableString(u.LastName),
		u.Password.Hash,
		u.Password.Salt,
		database.BoolToInt(u.IsAdmin),
		database.BoolToInt(u.IsStaff),
		database.FormatTime(now),
		u.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}

	u.UpdatedAt = &now
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	var email, phone, first, middle, last, updatedOn sql.NullString
	var createdOn string

	if err := row.Scan(&u.ID, &u.Username, &email, &phone, &first, &middle, &last,
		&u.Password.Hash, &u.Password.Salt, &u.IsAdmin, &u.IsStaff, &createdOn, &updatedOn); err != nil {
		return nil, err
	}

	u.Email = email.String
	u.PhoneNumber = phone.String
	u.FirstName = first.String
	u.MiddleName = middle.String
	u.LastName = last.String

	var err error
	if u.CreatedAt, err = database.ParseTime(createdOn); err != nil {
		return nil, err
	}
	if updatedOn.Valid {
		t, err := database.ParseTime(updatedOn.String)
		if err != nil {
			return nil, err
		}
		u.UpdatedAt = &t
	}
	return &u, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
