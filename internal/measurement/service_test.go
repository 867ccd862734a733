package measurement

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/auth"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, sample *Measurement) error {
	args := m.Called(ctx, sample)
	if args.Error(0) == nil {
		sample.ID = 42
	}
	return args.Error(0)
}

func (m *mockRepo) ListByExperiment(ctx context.Context, experimentID int64) ([]Measurement, error) {
	args := m.Called(ctx, experimentID)
	list, _ := args.Get(0).([]Measurement) //nolint:errcheck // nil slice is a valid stub
	return list, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordMeasurement(sample *Measurement, t *Target) {
	m.Called(sample, t)
}

type fakeSource map[int64]*Target

func (f fakeSource) Target(_ context.Context, id int64) (*Target, error) {
	t, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("Experiment with id: %d does not exist", id)
	}
	return t, nil
}

// directTx runs fn without a transaction.
type directTx struct{}

func (directTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	owner    = auth.Principal{Kind: auth.PrincipalClient, ID: 1, Name: "device-x"}
	stranger = auth.Principal{Kind: auth.PrincipalClient, ID: 2, Name: "device-y"}
)

func sample(experimentID int64) CreateRequest {
	ts := int64(1700000000000)
	v := decimal.RequireFromString("1.5")
	c := decimal.RequireFromString("-0.0000123")
	return CreateRequest{ExperimentID: experimentID, Timestamp: &ts, Voltage: &v, Current: &c}
}

func newTestService(repo Repository, rec Recorder) *Service {
	src := fakeSource{
		1: {ID: 1, ClientID: owner.ID, ClientIdentifier: owner.Name, Status: StatusRunning},
		2: {ID: 2, ClientID: owner.ID, ClientIdentifier: owner.Name, Status: "INITIATED"},
		3: {ID: 3, ClientID: owner.ID, ClientIdentifier: owner.Name, Status: "COMPLETED"},
	}
	return NewService(repo, src, directTx{}, rec)
}

func TestCreate_AcceptsAndRecords(t *testing.T) {
	repo := &mockRepo{}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(m *Measurement) bool {
		return m.ExperimentID == 1 && m.Timestamp == 1700000000000
	})).Return(nil).Once()
	rec.On("RecordMeasurement", mock.AnythingOfType("*measurement.Measurement"), mock.MatchedBy(func(t *Target) bool {
		return t.ClientIdentifier == "device-x"
	})).Once()

	resp, err := svc.Create(context.Background(), owner, sample(1))
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, int64(1), resp.ExperimentID)
	assert.True(t, resp.Current.Equal(decimal.RequireFromString("-0.0000123")))

	repo.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestCreate_NilRecorder(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := newTestService(repo, nil).Create(context.Background(), owner, sample(1))
	require.NoError(t, err)
}

func TestCreate_Rejections(t *testing.T) {
	user := auth.Principal{Kind: auth.PrincipalUser, ID: 1, Name: "alice"}

	tooPrecise := sample(1)
	tp := decimal.RequireFromString("0.00000001")
	tooPrecise.Voltage = &tp

	outOfRange := sample(1)
	oor := decimal.RequireFromString("-100")
	outOfRange.Current = &oor

	missing := sample(1)
	missing.Timestamp = nil

	tests := []struct {
		name    string
		caller  auth.Principal
		req     CreateRequest
		kind    apperr.Kind
		message string
	}{
		{"user caller", user, sample(1), apperr.KindForbidden, ""},
		{"unauthenticated", auth.Principal{}, sample(1), apperr.KindForbidden, ""},
		{"too precise", owner, tooPrecise, apperr.KindValidation, ""},
		{"out of range", owner, outOfRange, apperr.KindValidation, ""},
		{"missing timestamp", owner, missing, apperr.KindValidation, ""},
		{"unknown experiment", owner, sample(99), apperr.KindNotFound, "Experiment with id: 99 does not exist"},
		{"not owner", stranger, sample(1), apperr.KindForbidden, "Unauthorized: device-y is not allowed to access or change this resource"},
		{"not owner of initiated", stranger, sample(2), apperr.KindForbidden, ""},
		{"initiated", owner, sample(2), apperr.KindBadRequest, "Cannot post measurements for INITIATED experiment"},
		{"completed", owner, sample(3), apperr.KindBadRequest, "Cannot post measurements for COMPLETED experiment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{}
			rec := &mockRecorder{}
			_, err := newTestService(repo, rec).Create(context.Background(), tt.caller, tt.req)

			e, ok := apperr.As(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, e.Kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, e.Message)
			}
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			rec.AssertNotCalled(t, "RecordMeasurement", mock.Anything, mock.Anything)
		})
	}
}

func TestCreate_StoreFailureSkipsRecorder(t *testing.T) {
	repo := &mockRepo{}
	rec := &mockRecorder{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	_, err := newTestService(repo, rec).Create(context.Background(), owner, sample(1))
	require.Error(t, err)
	rec.AssertNotCalled(t, "RecordMeasurement", mock.Anything, mock.Anything)
}
