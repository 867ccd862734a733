package experiment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
	"github.com/nerrad567/potentiostat-core/internal/voltage"
)

// Repository defines the interface for experiment persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Experiment, error)
	// ActiveForClient returns the client's experiment that is not
	// completed, or ErrExperimentNotFound.
	ActiveForClient(ctx context.Context, clientID int64) (*Experiment, error)
	Search(ctx context.Context, f Filter, page pagination.Request) ([]Experiment, int, error)
	Create(ctx context.Context, e *Experiment) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// Delete physically removes an experiment. Used only to compensate a
	// creation whose notification failed.
	Delete(ctx context.Context, id int64) error
}

// experimentSelect joins the owning accounts so responses carry names.
const experimentSelect = `
	SELECT e.id, e.experiment_status, e.start_voltage, e.end_voltage, e.voltage_step,
		e.user_id, e.client_id, u.username, c.identifier, e.created_on, e.updated_on
	FROM experiments e
	JOIN users u ON u.id = e.user_id
	JOIN clients c ON c.id = e.client_id`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a live experiment by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Experiment, error) {
	return r.getOne(ctx, experimentSelect+` WHERE e.id = ? AND e.is_deleted = 0`, id)
}

// ActiveForClient retrieves the client's experiment that is not completed.
func (r *SQLiteRepository) ActiveForClient(ctx context.Context, clientID int64) (*Experiment, error) {
	return r.getOne(ctx, experimentSelect+`
		WHERE e.client_id = ? AND e.experiment_status != 'COMPLETED' AND e.is_deleted = 0
		LIMIT 1`, clientID)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*Experiment, error) {
	e, err := scanExperiment(database.Conn(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExperimentNotFound
		}
		return nil, fmt.Errorf("querying experiment: %w", err)
	}
	return e, nil
}

// Search returns one page of experiments matching f, newest first, plus
// the total match count.
func (r *SQLiteRepository) Search(ctx context.Context, f Filter, page pagination.Request) ([]Experiment, int, error) {
	conditions := []string{"e.is_deleted = 0"}
	var args []any

	if f.Status != "" {
		conditions = append(conditions, "e.experiment_status = ?")
		args = append(args, f.Status)
	}
	if f.Username != "" {
		conditions = append(conditions, "instr(u.username, ?) > 0")
		args = append(args, f.Username)
	}
	if f.ClientID != "" {
		conditions = append(conditions, "instr(c.identifier, ?) > 0")
		args = append(args, f.ClientID)
	}
	if f.OwnerID != 0 {
		conditions = append(conditions, "e.user_id = ?")
		args = append(args, f.OwnerID)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	conn := database.Conn(ctx, r.db)

	countQuery := `SELECT COUNT(*) FROM experiments e
		JOIN users u ON u.id = e.user_id
		JOIN clients c ON c.id = e.client_id` + where
	var total int
	if err := conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting experiments: %w", err)
	}

	query := experimentSelect + where + ` ORDER BY e.id DESC LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("searching experiments: %w", err)
	}
	defer rows.Close()

	var out []Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning experiment: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating experiments: %w", err)
	}
	return out, total, nil
}

// Create inserts an experiment and sets its ID and CreatedAt. The partial
// unique index on active experiments reports a concurrent creation as
// ErrActiveExperimentExists.
func (r *SQLiteRepository) Create(ctx context.Context, e *Experiment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO experiments (
			experiment_status, start_voltage, end_voltage, voltage_step, user_id, client_id, created_on
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(e.Status),
		voltage.Format(e.StartVoltage),
		voltage.Format(e.EndVoltage),
		voltage.Format(e.VoltageStep),
		e.UserID,
		e.ClientID,
		database.FormatTime(e.CreatedAt),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrActiveExperimentExists
		}
		return fmt.Errorf("inserting experiment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading experiment id: %w", err)
	}
	e.ID = id
	return nil
}

// UpdateStatus moves an experiment to status.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE experiments SET experiment_status = ?, updated_on = ? WHERE id = ? AND is_deleted = 0`,
		string(status), database.FormatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating experiment status: %w", err)
	}
	return requireOne(res)
}

// Delete removes an experiment row.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting experiment: %w", err)
	}
	return requireOne(res)
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrExperimentNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row scanner) (*Experiment, error) {
	var e Experiment
	var status, start, end, step, createdOn string
	var updatedOn sql.NullString

	if err := row.Scan(&e.ID, &status, &start, &end, &step, &e.UserID, &e.ClientID,
		&e.Username, &e.ClientIdentifier, &createdOn, &updatedOn); err != nil {
		return nil, err
	}
	e.Status = Status(status)

	var err error
	if e.StartVoltage, err = voltage.Parse(start); err != nil {
		return nil, err
	}
	if e.EndVoltage, err = voltage.Parse(end); err != nil {
		return nil, err
	}
	if e.VoltageStep, err = voltage.Parse(step); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = database.ParseTime(createdOn); err != nil {
		return nil, err
	}
	if updatedOn.Valid {
		t, err := database.ParseTime(updatedOn.String)
		if err != nil {
			return nil, err
		}
		e.UpdatedAt = &t
	}
	return &e, nil
}
