package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/testutil"
)

func TestCreateAndList(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*AuditLog{
		{Action: ActionCreated, EntityType: EntityExperiment, EntityID: "1", ActorKind: "user", ActorName: "alice", CreatedAt: base},
		{Action: ActionStarted, EntityType: EntityExperiment, EntityID: "1", ActorKind: "client", ActorName: "dev-1", CreatedAt: base.Add(time.Second)},
		{Action: ActionCreated, EntityType: EntityExperiment, EntityID: "2", ActorKind: "user", ActorName: "bob",
			Details: map[string]any{"client_id": "dev-2"}, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create() did not assign an ID")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || all.Limit != 50 || len(all.Logs) != 3 {
		t.Fatalf("List() = total %d limit %d len %d", all.Total, all.Limit, len(all.Logs))
	}
	if all.Logs[0].EntityID != "2" || all.Logs[0].Details["client_id"] != "dev-2" {
		t.Errorf("newest entry = %+v", all.Logs[0])
	}

	created, err := repo.List(ctx, Filter{Action: ActionCreated, Limit: 1})
	if err != nil {
		t.Fatalf("List(created) error = %v", err)
	}
	if created.Total != 2 || len(created.Logs) != 1 {
		t.Errorf("List(created) = total %d len %d", created.Total, len(created.Logs))
	}

	one, err := repo.List(ctx, Filter{EntityType: EntityExperiment, EntityID: "1", Limit: 500, Offset: -3})
	if err != nil {
		t.Fatalf("List(entity 1) error = %v", err)
	}
	if one.Total != 2 || one.Limit != 200 || one.Offset != 0 {
		t.Errorf("List(entity 1) = total %d limit %d offset %d", one.Total, one.Limit, one.Offset)
	}
	if one.Logs[1].ActorKind != "user" || !one.Logs[1].CreatedAt.Equal(base) {
		t.Errorf("oldest entity 1 entry = %+v", one.Logs[1])
	}
}

func TestCreate_JoinsTransaction(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := db.WithTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, &AuditLog{Action: ActionStopped, EntityType: EntityExperiment, ActorKind: "user", ActorName: "alice"}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("WithTx() error = %v", err)
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 0 {
		t.Errorf("Total = %d after rollback, want 0", res.Total)
	}
}
