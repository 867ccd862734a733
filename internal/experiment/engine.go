package experiment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/audit"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/client"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
	"github.com/nerrad567/potentiostat-core/internal/measurement"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
)

// Notifier pushes an event to a client channel. A returned error means the
// event was not delivered.
type Notifier interface {
	Notify(ctx context.Context, channel, event string, payload any) error
}

// Logger is the logging surface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the engine's collaborators.
type Deps struct {
	Repo         Repository
	Clients      client.Repository
	Measurements measurement.Repository
	Audit        audit.Repository
	Notifier     Notifier
	Tx           database.Transactor
	Logger       Logger
}

// Engine runs the experiment lifecycle: INITIATED → RUNNING → COMPLETED.
//
// Every operation checks who the caller is before it reveals anything
// about the experiment's state, so a non-owner always gets Forbidden even
// when the transition would be invalid anyway.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Each operation runs in its
//     own unit of work; the one-active-experiment rule is also backed by a
//     partial unique index.
type Engine struct {
	repo         Repository
	clients      client.Repository
	measurements measurement.Repository
	audit        audit.Repository
	notifier     Notifier
	tx           database.Transactor
	logger       Logger
}

// NewEngine creates an Engine.
func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		repo:         deps.Repo,
		clients:      deps.Clients,
		measurements: deps.Measurements,
		audit:        deps.Audit,
		notifier:     deps.Notifier,
		tx:           deps.Tx,
		logger:       logger,
	}
}

// Create persists a new INITIATED experiment and notifies the target
// client. Persisting and notifying are separate steps: when notification
// fails the committed row is deleted again and the caller gets an
// upstream error.
func (e *Engine) Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Response, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}
	if err := apperr.FromValidation(req.Validate()); err != nil {
		return nil, err
	}

	exp := &Experiment{
		Status:       StatusInitiated,
		StartVoltage: *req.StartVoltage,
		EndVoltage:   *req.EndVoltage,
		VoltageStep:  *req.VoltageStep,
		UserID:       p.ID,
		Username:     p.Name,
	}

	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := client.ByIdentifier(ctx, e.clients, req.ClientID)
		if err != nil {
			return err
		}
		exp.ClientID = c.ID
		exp.ClientIdentifier = c.Identifier

		if err := e.rejectIfActive(ctx, c.ID); err != nil {
			return err
		}

		if err := e.repo.Create(ctx, exp); err != nil {
			if errors.Is(err, ErrActiveExperimentExists) {
				if activeErr := e.rejectIfActive(ctx, c.ID); activeErr != nil {
					return activeErr
				}
			}
			return err
		}
		return e.record(ctx, p, audit.ActionCreated, exp.ID, map[string]any{"client_id": c.Identifier})
	})
	if err != nil {
		return nil, err
	}

	resp := ToResponse(exp)
	if err := e.notifier.Notify(ctx, exp.ClientIdentifier, EventCreated, resp); err != nil {
		e.logger.Error("experiment notification failed, rolling back",
			"experiment_id", exp.ID, "client_id", exp.ClientIdentifier, "error", err)
		e.compensateCreate(ctx, p, exp)
		return nil, apperr.Upstream(err, "An error occurred while attempting to notify client %s", exp.ClientIdentifier)
	}

	e.logger.Info("experiment created", "experiment_id", exp.ID, "client_id", exp.ClientIdentifier, "by", p.Name)
	return &resp, nil
}

// rejectIfActive returns a BadRequest naming the state of the client's
// unfinished experiment, or nil when there is none.
func (e *Engine) rejectIfActive(ctx context.Context, clientID int64) error {
	active, err := e.repo.ActiveForClient(ctx, clientID)
	if errors.Is(err, ErrExperimentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return apperr.BadRequest("An experiment in the %s state already exists for this client", active.Status)
}

func (e *Engine) compensateCreate(ctx context.Context, p auth.Principal, exp *Experiment) {
	// The request may already be cancelled; the row must still go.
	ctx = context.WithoutCancel(ctx)

	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.repo.Delete(ctx, exp.ID); err != nil {
			return err
		}
		return e.record(ctx, p, audit.ActionCreateRolledBack, exp.ID, map[string]any{"client_id": exp.ClientIdentifier})
	})
	if err != nil {
		e.logger.Error("failed to roll back experiment creation", "experiment_id", exp.ID, "error", err)
	}
}

// Start moves an INITIATED experiment to RUNNING. Only the owning client
// may start it.
func (e *Engine) Start(ctx context.Context, p auth.Principal, id int64) error {
	if err := auth.RequireClient(p); err != nil {
		return err
	}

	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		exp, err := e.get(ctx, id)
		if err != nil {
			return err
		}
		if exp.ClientID != p.ID {
			return apperr.Forbidden(p.Name)
		}
		if exp.Status != StatusInitiated {
			return apperr.BadRequest("Cannot start %s experiment", exp.Status)
		}
		if err := e.repo.UpdateStatus(ctx, id, StatusRunning); err != nil {
			return err
		}
		return e.record(ctx, p, audit.ActionStarted, id, nil)
	})
	if err != nil {
		return err
	}

	e.logger.Info("experiment started", "experiment_id", id, "client_id", p.Name)
	return nil
}

// Stop moves an experiment that is not yet COMPLETED to COMPLETED. The
// creating user or the owning client may stop it. When a user stops it the
// client is told on a best-effort basis.
func (e *Engine) Stop(ctx context.Context, p auth.Principal, id int64) error {
	if !p.IsUser() && !p.IsClient() {
		return apperr.Forbidden("")
	}

	var exp *Experiment
	err := e.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		exp, err = e.get(ctx, id)
		if err != nil {
			return err
		}
		if p.IsUser() && exp.UserID != p.ID {
			return apperr.Forbidden(p.Name)
		}
		if p.IsClient() && exp.ClientID != p.ID {
			return apperr.Forbidden(p.Name)
		}
		if exp.Status == StatusCompleted {
			return apperr.BadRequest("Experiment is already completed")
		}
		if err := e.repo.UpdateStatus(ctx, id, StatusCompleted); err != nil {
			return err
		}
		return e.record(ctx, p, audit.ActionStopped, id, map[string]any{"previous_status": string(exp.Status)})
	})
	if err != nil {
		return err
	}
	exp.Status = StatusCompleted

	e.logger.Info("experiment stopped", "experiment_id", id, "by", p.Name, "actor_kind", p.Kind.String())

	if p.IsUser() {
		if err := e.notifier.Notify(ctx, exp.ClientIdentifier, EventStopped, ToResponse(exp)); err != nil {
			e.logger.Warn("experiment stop notification failed", "experiment_id", id, "error", err)
		}
	}
	return nil
}

// Get returns an experiment to an admin or its creator.
func (e *Engine) Get(ctx context.Context, p auth.Principal, id int64) (*Response, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}

	exp, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin && exp.UserID != p.ID {
		return nil, apperr.Forbidden(p.Name)
	}

	resp := ToResponse(exp)
	return &resp, nil
}

// Search returns a page of experiments. Non-admins only ever see their own.
func (e *Engine) Search(ctx context.Context, p auth.Principal, q SearchQuery, page pagination.Request) (pagination.Page[Response], error) {
	if err := auth.RequireUser(p); err != nil {
		return pagination.Page[Response]{}, err
	}
	if err := apperr.FromValidation(q.Validate()); err != nil {
		return pagination.Page[Response]{}, err
	}

	f := Filter{SearchQuery: q}
	if !p.IsAdmin {
		f.OwnerID = p.ID
	}

	exps, total, err := e.repo.Search(ctx, f, page)
	if err != nil {
		return pagination.Page[Response]{}, err
	}

	content := make([]Response, len(exps))
	for i := range exps {
		content[i] = ToResponse(&exps[i])
	}
	return pagination.New(content, page, total), nil
}

// Measurements lists an experiment's samples for an admin, its creator, or
// the client that recorded them.
func (e *Engine) Measurements(ctx context.Context, p auth.Principal, id int64) ([]measurement.Response, error) {
	if !p.IsUser() && !p.IsClient() {
		return nil, apperr.Forbidden("")
	}

	exp, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case p.IsUser() && (p.IsAdmin || exp.UserID == p.ID):
	case p.IsClient() && exp.ClientID == p.ID:
	default:
		return nil, apperr.Forbidden(p.Name)
	}

	ms, err := e.measurements.ListByExperiment(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]measurement.Response, len(ms))
	for i := range ms {
		out[i] = measurement.ToResponse(&ms[i])
	}
	return out, nil
}

// Target implements measurement.ExperimentSource.
func (e *Engine) Target(ctx context.Context, id int64) (*measurement.Target, error) {
	exp, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &measurement.Target{
		ID:               exp.ID,
		ClientID:         exp.ClientID,
		ClientIdentifier: exp.ClientIdentifier,
		Status:           string(exp.Status),
	}, nil
}

func (e *Engine) get(ctx context.Context, id int64) (*Experiment, error) {
	exp, err := e.repo.GetByID(ctx, id)
	if errors.Is(err, ErrExperimentNotFound) {
		return nil, apperr.NotFound("Experiment with id: %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading experiment %d: %w", id, err)
	}
	return exp, nil
}

func (e *Engine) record(ctx context.Context, p auth.Principal, action string, id int64, details map[string]any) error {
	return e.audit.Create(ctx, &audit.AuditLog{
		Action:     action,
		EntityType: audit.EntityExperiment,
		EntityID:   strconv.FormatInt(id, 10),
		ActorKind:  p.Kind.String(),
		ActorName:  p.Name,
		Details:    details,
	})
}
