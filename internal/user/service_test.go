package user

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
	"github.com/nerrad567/potentiostat-core/internal/testutil"
	"github.com/nerrad567/potentiostat-core/internal/usertoken"
)

// captureSender records reset tokens instead of delivering them.
type captureSender struct {
	token *usertoken.Token
	err   error
}

func (c *captureSender) SendPasswordReset(_ context.Context, _ *User, token *usertoken.Token) error {
	c.token = token
	return c.err
}

func setupService(t *testing.T) (*Service, *captureSender) {
	t.Helper()

	db := testutil.OpenDB(t)
	sender := &captureSender{}
	svc := NewService(
		NewSQLiteRepository(db.DB),
		db,
		usertoken.NewStore(usertoken.NewSQLiteRepository(db.DB), db),
		sender,
		Options{ResetTokenLength: 8, ResetTokenExpiry: 15, PhoneRegion: "US"},
		nil,
	)
	return svc, sender
}

func mustCreate(t *testing.T, svc *Service, username, password string) *Response {
	t.Helper()
	resp, err := svc.Create(context.Background(), CreateRequest{Username: username, Password: password})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", username, err)
	}
	return resp
}

func principalOf(r *Response) auth.Principal {
	return auth.Principal{Kind: auth.PrincipalUser, ID: r.ID, Name: r.Username, IsAdmin: r.IsAdmin, IsStaff: r.IsStaff}
}

func wantKind(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()
	e, ok := apperr.As(err)
	if !ok || e.Kind != kind {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
	if message != "" && e.Message != message {
		t.Errorf("message = %q, want %q", e.Message, message)
	}
}

func seedStaff(t *testing.T, svc *Service) auth.Principal {
	t.Helper()
	ctx := context.Background()

	if _, err := svc.SeedSuperAdmin(ctx, SeedAccount{Username: "root", Password: "rootpass"}); err != nil {
		t.Fatalf("SeedSuperAdmin() error = %v", err)
	}
	u, err := svc.repo.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetByUsername(root) error = %v", err)
	}
	return u.Principal()
}

func TestCreate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, CreateRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		Password:  "wonderland",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if resp.ID == 0 || resp.Username != "alice" || resp.IsAdmin || resp.IsStaff {
		t.Errorf("Create() = %+v", resp)
	}
	if resp.Email == nil || *resp.Email != "alice@example.com" {
		t.Errorf("Email = %v", resp.Email)
	}
	if resp.LastName != nil {
		t.Errorf("LastName = %q, want nil", *resp.LastName)
	}

	stored, err := svc.repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if !auth.VerifySecret("wonderland", stored.Password) {
		t.Error("stored password does not verify")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	svc, _ := setupService(t)
	mustCreate(t, svc, "alice", "pw")

	_, err := svc.Create(context.Background(), CreateRequest{Username: "alice", Password: "other"})
	wantKind(t, err, apperr.KindValidation, "")

	e, _ := apperr.As(err)
	if got := e.Fields["username"]; got != "User with username: 'alice' already registered" {
		t.Errorf("Fields[username] = %q", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := setupService(t)

	tests := []struct {
		name  string
		req   CreateRequest
		field string
	}{
		{"no username", CreateRequest{Password: "pw"}, "username"},
		{"no password", CreateRequest{Username: "bob"}, "password"},
		{"bad email", CreateRequest{Username: "bob", Password: "pw", Email: "not-an-email"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			wantKind(t, err, apperr.KindValidation, "")
			if e, _ := apperr.As(err); e.Fields[tt.field] == "" {
				t.Errorf("Fields = %v, want entry for %q", e.Fields, tt.field)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	staff := seedStaff(t, svc)
	alice := mustCreate(t, svc, "alice", "pw")
	mustCreate(t, svc, "alina", "pw")
	mustCreate(t, svc, "bob", "pw")

	_, err := svc.Search(ctx, principalOf(alice), SearchQuery{}, pagination.Request{Size: 10})
	wantKind(t, err, apperr.KindForbidden, "Unauthorized: alice is not allowed to access or change this resource")

	page, err := svc.Search(ctx, staff, SearchQuery{Username: "ali"}, pagination.Request{Page: 0, Size: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if page.Total != 2 || len(page.Content) != 1 || !page.HasNext || page.Pages != 2 {
		t.Errorf("Search() page = %+v", page)
	}
	if page.Content[0].Username != "alice" {
		t.Errorf("first result = %q, want alice", page.Content[0].Username)
	}
}

func TestGet(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	staff := seedStaff(t, svc)
	alice := mustCreate(t, svc, "alice", "pw")
	bob := mustCreate(t, svc, "bob", "pw")

	if _, err := svc.Get(ctx, principalOf(alice), alice.ID); err != nil {
		t.Errorf("Get(self) error = %v", err)
	}
	if _, err := svc.Get(ctx, staff, bob.ID); err != nil {
		t.Errorf("Get(admin) error = %v", err)
	}

	_, err := svc.Get(ctx, principalOf(alice), bob.ID)
	wantKind(t, err, apperr.KindForbidden, "")

	_, err = svc.Get(ctx, staff, 9999)
	wantKind(t, err, apperr.KindNotFound, "User with id: 9999 does not exist")

	_, err = svc.Get(ctx, auth.Principal{Kind: auth.PrincipalClient, Name: "dev"}, alice.ID)
	wantKind(t, err, apperr.KindForbidden, "")
}

func TestMe(t *testing.T) {
	svc, _ := setupService(t)
	alice := mustCreate(t, svc, "alice", "pw")

	me, err := svc.Me(context.Background(), principalOf(alice))
	if err != nil || me.Username != "alice" {
		t.Errorf("Me() = %+v, %v", me, err)
	}

	_, err = svc.Me(context.Background(), auth.Principal{Kind: auth.PrincipalUser, ID: 4242, Name: "ghost"})
	wantKind(t, err, apperr.KindForbidden, "")
}

func validUpdate() UpdateRequest {
	return UpdateRequest{
		Email:       "alice@example.com",
		PhoneNumber: "(650) 253-0000",
		FirstName:   "Alice",
		MiddleName:  "P",
		LastName:    "Liddell",
		Password:    "new-password",
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice := mustCreate(t, svc, "alice", "pw")

	resp, err := svc.Update(ctx, principalOf(alice), alice.ID, validUpdate())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if resp.Username != "alice@example.com" {
		t.Errorf("Username = %q, want the email", resp.Username)
	}
	if resp.PhoneNumber == nil || *resp.PhoneNumber != "+16502530000" {
		t.Errorf("PhoneNumber = %v, want E.164", resp.PhoneNumber)
	}

	stored, err := svc.repo.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !auth.VerifySecret("new-password", stored.Password) || stored.UpdatedAt == nil {
		t.Error("password not re-hashed or updated_on not stamped")
	}
}

func TestUpdate_Rejections(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	staff := seedStaff(t, svc)
	alice := mustCreate(t, svc, "alice", "pw")
	bob := mustCreate(t, svc, "bob", "pw")
	mustCreate(t, svc, "taken@example.com", "pw")

	_, err := svc.Update(ctx, staff, staff.ID, validUpdate())
	wantKind(t, err, apperr.KindBadRequest, "Cannot modify super admin user")

	_, err = svc.Update(ctx, principalOf(alice), bob.ID, validUpdate())
	wantKind(t, err, apperr.KindForbidden, "Unauthorized: alice is not allowed to access or change this resource")

	req := validUpdate()
	req.Email = "taken@example.com"
	_, err = svc.Update(ctx, principalOf(alice), alice.ID, req)
	wantKind(t, err, apperr.KindBadRequest, "Cannot update username. User with username: 'taken@example.com' already exists")

	req = validUpdate()
	req.PhoneNumber = "12"
	_, err = svc.Update(ctx, principalOf(alice), alice.ID, req)
	wantKind(t, err, apperr.KindValidation, "")

	req = validUpdate()
	req.MiddleName = ""
	_, err = svc.Update(ctx, principalOf(alice), alice.ID, req)
	wantKind(t, err, apperr.KindValidation, "")

	_, err = svc.Update(ctx, principalOf(alice), 9999, validUpdate())
	wantKind(t, err, apperr.KindNotFound, "User with id: 9999 does not exist")
}

func TestChangeAdminStatus(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	staff := seedStaff(t, svc)
	alice := mustCreate(t, svc, "alice", "pw")

	resp, err := svc.ChangeAdminStatus(ctx, staff, alice.ID, AdminStatusRequest{IsAdmin: true})
	if err != nil {
		t.Fatalf("ChangeAdminStatus() error = %v", err)
	}
	if !resp.IsAdmin {
		t.Error("IsAdmin = false after grant")
	}

	// An admin who is not staff still may not change admin status.
	admin := principalOf(resp)
	_, err = svc.ChangeAdminStatus(ctx, admin, alice.ID, AdminStatusRequest{})
	wantKind(t, err, apperr.KindForbidden, "Unauthorized: alice is not allowed to access or change this resource")

	_, err = svc.ChangeAdminStatus(ctx, staff, staff.ID, AdminStatusRequest{})
	wantKind(t, err, apperr.KindBadRequest, "Cannot modify admin status of super admin user")
}

func TestSeedSuperAdmin_Idempotent(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	seed := SeedAccount{Username: "root", Password: "rootpass", FirstName: "Super", LastName: "Admin"}

	created, err := svc.SeedSuperAdmin(ctx, seed)
	if err != nil || !created {
		t.Fatalf("SeedSuperAdmin() = %v, %v; want true, nil", created, err)
	}
	created, err = svc.SeedSuperAdmin(ctx, seed)
	if err != nil || created {
		t.Fatalf("second SeedSuperAdmin() = %v, %v; want false, nil", created, err)
	}

	u, err := svc.repo.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if !u.IsAdmin || !u.IsStaff {
		t.Errorf("seeded user flags = admin:%v staff:%v", u.IsAdmin, u.IsStaff)
	}

	if created, err := svc.SeedSuperAdmin(ctx, SeedAccount{}); err != nil || created {
		t.Errorf("SeedSuperAdmin(empty) = %v, %v", created, err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, sender := setupService(t)
	ctx := context.Background()
	mustCreate(t, svc, "alice", "old-password")

	if err := svc.ForgotPassword(ctx, "alice"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	if sender.token == nil || len(sender.token.Token) != 8 {
		t.Fatalf("sender token = %+v", sender.token)
	}

	ok, err := svc.VerifyToken(ctx, VerifyTokenRequest{Username: "alice", Token: sender.token.Token, TokenType: "RESET_PASSWORD"})
	if err != nil || !ok {
		t.Fatalf("VerifyToken() = %v, %v", ok, err)
	}

	resp, err := svc.ResetPassword(ctx, ResetPasswordRequest{Username: "alice", Password: "new-password", Token: sender.token.Token})
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if resp.Username != "alice" {
		t.Errorf("ResetPassword() = %+v", resp)
	}

	stored, _ := svc.repo.GetByUsername(ctx, "alice") //nolint:errcheck // user exists
	if !auth.VerifySecret("new-password", stored.Password) {
		t.Error("new password does not verify")
	}

	_, err = svc.ResetPassword(ctx, ResetPasswordRequest{Username: "alice", Password: "again", Token: sender.token.Token})
	wantKind(t, err, apperr.KindBadRequest, "User token for token type: RESET_PASSWORD does not exist for given user")
}

func TestResetPassword_WrongTokenKeepsPassword(t *testing.T) {
	svc, sender := setupService(t)
	ctx := context.Background()
	mustCreate(t, svc, "alice", "old-password")

	if err := svc.ForgotPassword(ctx, "alice"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	wrong := "0" + sender.token.Token[1:]
	_, err := svc.ResetPassword(ctx, ResetPasswordRequest{Username: "alice", Password: "new", Token: wrong})
	wantKind(t, err, apperr.KindBadRequest, "Invalid user token")

	stored, _ := svc.repo.GetByUsername(ctx, "alice") //nolint:errcheck // user exists
	if !auth.VerifySecret("old-password", stored.Password) {
		t.Error("password changed despite invalid token")
	}
}

func TestForgotPassword_Errors(t *testing.T) {
	svc, sender := setupService(t)
	ctx := context.Background()

	err := svc.ForgotPassword(ctx, "nobody")
	wantKind(t, err, apperr.KindNotFound, "User with username: nobody does not exist")

	mustCreate(t, svc, "alice", "pw")
	sender.err = errors.New("smtp down")
	err = svc.ForgotPassword(ctx, "alice")
	wantKind(t, err, apperr.KindUpstream, "")
}

func TestVerifyToken_InvalidType(t *testing.T) {
	svc, _ := setupService(t)
	mustCreate(t, svc, "alice", "pw")

	_, err := svc.VerifyToken(context.Background(), VerifyTokenRequest{Username: "alice", Token: "abc", TokenType: "MAGIC"})
	wantKind(t, err, apperr.KindBadRequest, "Invalid token type")
}

func TestDirectory_FindUser(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	alice := mustCreate(t, svc, "alice", "pw")
	dir := NewDirectory(svc.repo)

	acct, err := dir.FindUser(ctx, "alice")
	if err != nil {
		t.Fatalf("FindUser() error = %v", err)
	}
	if acct.ID != alice.ID || !acct.IsUser() || !auth.VerifySecret("pw", acct.Credential) {
		t.Errorf("FindUser() = %+v", acct.Principal)
	}

	if _, err := dir.FindUser(ctx, "nobody"); !errors.Is(err, auth.ErrPrincipalNotFound) {
		t.Errorf("FindUser(nobody) error = %v, want ErrPrincipalNotFound", err)
	}
}
