package experiment

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/nerrad567/potentiostat-core/internal/voltage"
)

// Status is the lifecycle state of an experiment.
type Status string

// Lifecycle states. COMPLETED is terminal.
const (
	StatusInitiated Status = "INITIATED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
)

// Notification events published to the owning client's channel.
const (
	EventCreated = "experiment.created"
	EventStopped = "experiment.stopped"
)

// Domain errors for the experiment package.
var (
	// ErrExperimentNotFound is returned when no live experiment has the id.
	ErrExperimentNotFound = errors.New("experiment: not found")

	// ErrActiveExperimentExists is returned when the client already has an
	// experiment that is not completed.
	ErrActiveExperimentExists = errors.New("experiment: client has an active experiment")
)

// Experiment is a voltage sweep run by one client on behalf of one user.
type Experiment struct {
	ID           int64
	Status       Status
	StartVoltage decimal.Decimal
	EndVoltage   decimal.Decimal
	VoltageStep  decimal.Decimal
	UserID       int64
	ClientID     int64
	// Username and ClientIdentifier are joined from the owning accounts.
	Username         string
	ClientIdentifier string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

// Response is the public representation of an experiment. It is also the
// payload of the experiment.created notification.
type Response struct {
	ID           int64           `json:"id"`
	Status       Status          `json:"experiment_status"`
	StartVoltage decimal.Decimal `json:"start_voltage"`
	EndVoltage   decimal.Decimal `json:"end_voltage"`
	VoltageStep  decimal.Decimal `json:"voltage_step"`
	Username     string          `json:"username"`
	ClientID     string          `json:"client_id"`
}

// ToResponse maps e to its public representation.
func ToResponse(e *Experiment) Response {
	return Response{
		ID:           e.ID,
		Status:       e.Status,
		StartVoltage: e.StartVoltage,
		EndVoltage:   e.EndVoltage,
		VoltageStep:  e.VoltageStep,
		Username:     e.Username,
		ClientID:     e.ClientIdentifier,
	}
}

// CreateRequest configures a new experiment for a client.
type CreateRequest struct {
	ClientID     string           `json:"client_id"`
	StartVoltage *decimal.Decimal `json:"start_voltage"`
	EndVoltage   *decimal.Decimal `json:"end_voltage"`
	VoltageStep  *decimal.Decimal `json:"voltage_step"`
}

// Validate checks the request shape and voltage precision.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ClientID, validation.Required),
		validation.Field(&r.StartVoltage, validation.NotNil, voltage.Rule),
		validation.Field(&r.EndVoltage, validation.NotNil, voltage.Rule),
		validation.Field(&r.VoltageStep, validation.NotNil, voltage.Rule),
	)
}

// SearchQuery filters experiments. Status matches exactly; Username and
// ClientID match as substrings. Empty fields are ignored.
type SearchQuery struct {
	Status   string `json:"experiment_status"`
	Username string `json:"username"`
	ClientID string `json:"client_id"`
}

// Validate checks that Status, when given, is a known state.
func (q SearchQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Status, validation.In(
			string(StatusInitiated), string(StatusRunning), string(StatusCompleted))),
	)
}

// Filter is a SearchQuery scoped for the repository.
type Filter struct {
	SearchQuery
	// OwnerID restricts results to one creator when non-zero.
	OwnerID int64
}
