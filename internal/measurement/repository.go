package measurement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
	"github.com/nerrad567/potentiostat-core/internal/voltage"
)

// Repository defines the interface for measurement persistence.
type Repository interface {
	Create(ctx context.Context, m *Measurement) error
	ListByExperiment(ctx context.Context, experimentID int64) ([]Measurement, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create appends a sample and sets its ID and CreatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, m *Measurement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO measurements (experiment_id, timestamp, voltage, current, created_on) VALUES (?, ?, ?, ?, ?)`,
		m.ExperimentID, m.Timestamp, voltage.Format(m.Voltage), voltage.Format(m.Current),
		database.FormatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting measurement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading measurement id: %w", err)
	}
	m.ID = id
	return nil
}

// ListByExperiment returns every live sample of an experiment ordered by
// client timestamp.
func (r *SQLiteRepository) ListByExperiment(ctx context.Context, experimentID int64) ([]Measurement, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, experiment_id, timestamp, voltage, current, created_on
		 FROM measurements WHERE experiment_id = ? AND is_deleted = 0
		 ORDER BY timestamp, id`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var m Measurement
		var v, c, createdOn string
		if err := rows.Scan(&m.ID, &m.ExperimentID, &m.Timestamp, &v, &c, &createdOn); err != nil {
			return nil, fmt.Errorf("scanning measurement: %w", err)
		}
		if m.Voltage, err = voltage.Parse(v); err != nil {
			return nil, err
		}
		if m.Current, err = voltage.Parse(c); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = database.ParseTime(createdOn); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating measurements: %w", err)
	}
	return out, nil
}
