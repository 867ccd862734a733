package client

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
	"github.com/nerrad567/potentiostat-core/internal/testutil"
)

var (
	admin    = auth.Principal{Kind: auth.PrincipalUser, ID: 1, Name: "root", IsAdmin: true}
	nonAdmin = auth.Principal{Kind: auth.PrincipalUser, ID: 2, Name: "bob"}
)

func setupService(t *testing.T) (*Service, *SQLiteRepository) {
	t.Helper()
	repo := NewSQLiteRepository(testutil.OpenDB(t).DB)
	return NewService(repo), repo
}

func TestCreate(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, admin, CreateRequest{Identifier: "potentiostat-01", Secret: "s3cret"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if resp.ID == 0 || resp.Identifier != "potentiostat-01" {
		t.Errorf("Create() = %+v", resp)
	}

	stored, err := repo.GetByIdentifier(ctx, "potentiostat-01")
	if err != nil {
		t.Fatalf("GetByIdentifier() error = %v", err)
	}
	if !auth.VerifySecret("s3cret", stored.Secret) {
		t.Error("stored secret does not verify")
	}
}

func TestCreate_Rejections(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, admin, CreateRequest{Identifier: "dev", Secret: "x"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := svc.Create(ctx, admin, CreateRequest{Identifier: "dev", Secret: "y"})
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindValidation || e.Fields["identifier"] != "Client with identifier: 'dev' already registered" {
		t.Errorf("duplicate Create() error = %v", err)
	}

	_, err = svc.Create(ctx, admin, CreateRequest{Identifier: "dev2"})
	if e, ok := apperr.As(err); !ok || e.Fields["secret"] != "Client secret cannot be null" {
		t.Errorf("Create(no secret) error = %v", err)
	}

	_, err = svc.Create(ctx, nonAdmin, CreateRequest{Identifier: "dev3", Secret: "z"})
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("Create(non-admin) error = %v, want Forbidden", err)
	}

	_, err = svc.Create(ctx, auth.Principal{Kind: auth.PrincipalClient, Name: "dev"}, CreateRequest{Identifier: "dev4", Secret: "z"})
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("Create(client) error = %v, want Forbidden", err)
	}
}

func TestSearchAndGet(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for _, id := range []string{"lab-a", "lab-b", "field-1"} {
		if _, err := svc.Create(ctx, admin, CreateRequest{Identifier: id, Secret: "pw"}); err != nil {
			t.Fatalf("Create(%q) error = %v", id, err)
		}
	}

	page, err := svc.Search(ctx, admin, "lab", pagination.Request{Size: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.Total != 2 || len(page.Content) != 2 || page.HasNext {
		t.Errorf("Search(lab) = %+v", page)
	}

	all, err := svc.Search(ctx, admin, "", pagination.Request{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if all.Total != 3 || len(all.Content) != 1 || !all.HasPrevious || all.HasNext {
		t.Errorf("Search(all, page 1) = %+v", all)
	}

	got, err := svc.Get(ctx, admin, page.Content[0].ID)
	if err != nil || got.Identifier != "lab-a" {
		t.Errorf("Get() = %+v, %v", got, err)
	}

	_, err = svc.Get(ctx, admin, 404)
	if e, ok := apperr.As(err); !ok || e.Message != "Client with id: 404 does not exist" {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestByIdentifier(t *testing.T) {
	_, repo := setupService(t)

	_, err := ByIdentifier(context.Background(), repo, "ghost")
	if e, ok := apperr.As(err); !ok || e.Kind != apperr.KindNotFound ||
		e.Message != "Client with client identifier: ghost does not exist" {
		t.Errorf("ByIdentifier() error = %v", err)
	}
}

func TestDirectory_ExcludesSoftDeleted(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewSQLiteRepository(db.DB)
	svc := NewService(repo)
	dir := NewDirectory(repo)
	ctx := context.Background()

	resp, err := svc.Create(ctx, admin, CreateRequest{Identifier: "dev", Secret: "pw"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	acct, err := dir.FindClient(ctx, "dev")
	if err != nil || !acct.IsClient() || acct.IsAdmin || acct.ID != resp.ID {
		t.Fatalf("FindClient() = %+v, %v", acct, err)
	}

	if _, err := db.ExecContext(ctx, `UPDATE clients SET is_deleted = 1 WHERE id = ?`, resp.ID); err != nil {
		t.Fatalf("soft deleting: %v", err)
	}
	if _, err := dir.FindClient(ctx, "dev"); !errors.Is(err, auth.ErrPrincipalNotFound) {
		t.Errorf("FindClient(deleted) error = %v, want ErrPrincipalNotFound", err)
	}
}
