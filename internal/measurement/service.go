package measurement

import (
	"context"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
)

// Service accepts samples from the client that owns a running experiment.
type Service struct {
	repo        Repository
	experiments ExperimentSource
	tx          database.Transactor
	recorder    Recorder
}

// NewService creates a Service. recorder may be nil.
func NewService(repo Repository, experiments ExperimentSource, tx database.Transactor, recorder Recorder) *Service {
	return &Service{repo: repo, experiments: experiments, tx: tx, recorder: recorder}
}

// Create appends a sample. The caller must be the client that owns the
// experiment, and the experiment must be running; ownership is checked
// first.
func (s *Service) Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Response, error) {
	if err := auth.RequireClient(p); err != nil {
		return nil, err
	}
	if err := apperr.FromValidation(req.Validate()); err != nil {
		return nil, err
	}

	m := &Measurement{
		ExperimentID: req.ExperimentID,
		Timestamp:    *req.Timestamp,
		Voltage:      *req.Voltage,
		Current:      *req.Current,
	}

	var target *Target
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		target, err = s.experiments.Target(ctx, req.ExperimentID)
		if err != nil {
			return err
		}
		if target.ClientID != p.ID {
			return apperr.Forbidden(p.Name)
		}
		if target.Status != StatusRunning {
			return apperr.BadRequest("Cannot post measurements for %s experiment", target.Status)
		}
		return s.repo.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordMeasurement(m, target)
	}

	resp := ToResponse(m)
	return &resp, nil
}
