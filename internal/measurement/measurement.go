// Package measurement ingests the samples a client records while its
// experiment is running. Samples are append-only.
package measurement

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/nerrad567/potentiostat-core/internal/voltage"
)

// StatusRunning is the only experiment status that accepts samples.
const StatusRunning = "RUNNING"

// Measurement is one sample.
type Measurement struct {
	ID           int64
	ExperimentID int64
	// Timestamp is the client clock reading, in milliseconds.
	Timestamp int64
	Voltage   decimal.Decimal
	Current   decimal.Decimal
	CreatedAt time.Time
}

// Response is the public representation of a measurement.
type Response struct {
	ID           int64           `json:"id"`
	Timestamp    int64           `json:"timestamp"`
	Voltage      decimal.Decimal `json:"voltage"`
	Current      decimal.Decimal `json:"current"`
	ExperimentID int64           `json:"experiment_id"`
}

// ToResponse maps m to its public representation.
func ToResponse(m *Measurement) Response {
	return Response{
		ID:           m.ID,
		Timestamp:    m.Timestamp,
		Voltage:      m.Voltage,
		Current:      m.Current,
		ExperimentID: m.ExperimentID,
	}
}

// CreateRequest is a sample posted by a client.
type CreateRequest struct {
	ExperimentID int64            `json:"experiment_id"`
	Timestamp    *int64           `json:"timestamp"`
	Voltage      *decimal.Decimal `json:"voltage"`
	Current      *decimal.Decimal `json:"current"`
}

// Validate checks the request shape.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ExperimentID, validation.Required),
		validation.Field(&r.Timestamp, validation.NotNil),
		validation.Field(&r.Voltage, validation.NotNil, voltage.Rule),
		validation.Field(&r.Current, validation.NotNil, voltage.Rule),
	)
}

// Target is the experiment state ingestion needs.
type Target struct {
	ID               int64
	ClientID         int64
	ClientIdentifier string
	Status           string
}

// ExperimentSource resolves the experiment a sample is posted to. It
// returns a caller-facing NotFound error when the experiment is absent.
type ExperimentSource interface {
	Target(ctx context.Context, experimentID int64) (*Target, error)
}

// Recorder mirrors accepted samples to a secondary store. Recording is
// best effort and never fails ingestion.
type Recorder interface {
	RecordMeasurement(m *Measurement, t *Target)
}
