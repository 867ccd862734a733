package user

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/testutil"
)

func TestRepository_ExcludesSoftDeleted(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	u := &User{Username: "gone", Password: auth.Credential{Hash: []byte{1}, Salt: []byte{2}}}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE users SET is_deleted = 1 WHERE id = ?`, u.ID); err != nil {
		t.Fatalf("soft deleting: %v", err)
	}

	if _, err := repo.GetByID(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(deleted) error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByUsername(ctx, "gone"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByUsername(deleted) error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Update(ctx, u); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update(deleted) error = %v, want ErrUserNotFound", err)
	}
}

func TestRepository_CreateDuplicate(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()
	cred := auth.Credential{Hash: []byte{1}, Salt: []byte{2}}

	if err := repo.Create(ctx, &User{Username: "dup", Password: cred}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, &User{Username: "dup", Password: cred}); !errors.Is(err, ErrUserExists) {
		t.Errorf("Create(duplicate) error = %v, want ErrUserExists", err)
	}
}

func TestRepository_QueryFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE username = \\?").
		WithArgs("alice").
		WillReturnError(errors.New("disk I/O error"))

	_, err = NewSQLiteRepository(sqlDB).GetByUsername(context.Background(), "alice")
	if err == nil || errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetByUsername() error = %v, want wrapped driver error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
