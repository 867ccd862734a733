package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
	"github.com/nerrad567/potentiostat-core/internal/auth"
	"github.com/nerrad567/potentiostat-core/internal/infrastructure/database"
	"github.com/nerrad567/potentiostat-core/internal/pagination"
	"github.com/nerrad567/potentiostat-core/internal/usertoken"
)

// Logger is the logging surface the service needs.
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

// PasswordResetSender delivers a freshly issued reset token to its user.
type PasswordResetSender interface {
	SendPasswordReset(ctx context.Context, u *User, token *usertoken.Token) error
}

// LogResetSender records that a reset was requested. It never writes the
// token value.
type LogResetSender struct {
	Logger Logger
}

// SendPasswordReset implements PasswordResetSender.
func (s LogResetSender) SendPasswordReset(_ context.Context, u *User, token *usertoken.Token) error {
	s.Logger.Info("password reset token issued",
		"user_id", u.ID,
		"has_email", u.Email != "",
		"expires_at", token.ExpiresAt().Format(time.RFC3339),
	)
	return nil
}

// Options configures a Service.
type Options struct {
	// ResetTokenLength is the number of characters in a reset token.
	ResetTokenLength int
	// ResetTokenExpiry is the reset token lifetime in minutes.
	ResetTokenExpiry int
	// PhoneRegion is the ISO region assumed for numbers without a country code.
	PhoneRegion string
}

// SeedAccount describes the super admin created at startup.
type SeedAccount struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Service implements user account operations.
type Service struct {
	repo   Repository
	tx     database.Transactor
	tokens *usertoken.Store
	sender PasswordResetSender
	opts   Options
	logger Logger
}

// NewService creates a Service. A nil sender logs reset requests; a nil
// logger discards output.
func NewService(repo Repository, tx database.Transactor, tokens *usertoken.Store, sender PasswordResetSender, opts Options, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	if sender == nil {
		sender = LogResetSender{Logger: logger}
	}
	return &Service{repo: repo, tx: tx, tokens: tokens, sender: sender, opts: opts, logger: logger}
}

// Create registers a new non-admin user.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Response, error) {
	if err := apperr.FromValidation(req.Validate()); err != nil {
		return nil, err
	}

	cred, err := auth.HashSecret(req.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  cred,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		return s.repo.Create(ctx, u)
	})
	if errors.Is(err, ErrUserExists) {
		return nil, apperr.Field("username", fmt.Sprintf("User with username: '%s' already registered", req.Username))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID)
	resp := ToResponse(u)
	return &resp, nil
}

// Search returns a page of users. Admin only.
func (s *Service) Search(ctx context.Context, p auth.Principal, q SearchQuery, page pagination.Request) (pagination.Page[Response], error) {
	if err := auth.RequireAdmin(p); err != nil {
		return pagination.Page[Response]{}, err
	}

	users, total, err := s.repo.Search(ctx, q, page)
	if err != nil {
		return pagination.Page[Response]{}, err
	}

	content := make([]Response, len(users))
	for i := range users {
		content[i] = ToResponse(&users[i])
	}
	return pagination.New(content, page, total), nil
}

// Get returns a user. Admins may read anyone; others only themselves.
func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Response, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}

	u, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin && u.Username != p.Name {
		return nil, apperr.Forbidden(p.Name)
	}

	resp := ToResponse(u)
	return &resp, nil
}

// Me returns the calling user.
func (s *Service) Me(ctx context.Context, p auth.Principal) (*Response, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.Forbidden("")
		}
		return nil, err
	}

	resp := ToResponse(u)
	return &resp, nil
}

// Update replaces the caller's own profile and password. The super admin
// cannot be modified this way.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, req UpdateRequest) (*Response, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}
	if err := apperr.FromValidation(req.Validate(s.opts.PhoneRegion)); err != nil {
		return nil, err
	}

	phone, err := normalisePhone(req.PhoneNumber, s.opts.PhoneRegion)
	if err != nil {
		return nil, apperr.Field("phone_number", errInvalidPhone.Error())
	}
	cred, err := auth.HashSecret(req.Password)
	if err != nil {
		return nil, err
	}

	username := req.Email
	if username == "" {
		username = phone
	}

	var u *User
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.byID(ctx, id)
		if err != nil {
			return err
		}
		if u.IsStaff {
			return apperr.BadRequest("Cannot modify super admin user")
		}
		if u.Username != p.Name {
			return apperr.Forbidden(p.Name)
		}

		if username != u.Username {
			if _, err := s.repo.GetByUsername(ctx, username); err == nil {
				return ErrUserExists
			} else if !errors.Is(err, ErrUserNotFound) {
				return err
			}
		}

		u.Username = username
		u.Email = req.Email
		u.PhoneNumber = phone
		u.FirstName = req.FirstName
		u.MiddleName = req.MiddleName
		u.LastName = req.LastName
		u.Password = cred
		return s.repo.Update(ctx, u)
	})
	if errors.Is(err, ErrUserExists) {
		return nil, apperr.BadRequest("Cannot update username. User with username: '%s' already exists", username)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "user_id", u.ID)
	resp := ToResponse(u)
	return &resp, nil
}

// ChangeAdminStatus grants or revokes admin rights. Only the super admin
// may call it, and the super admin's own status is fixed.
func (s *Service) ChangeAdminStatus(ctx context.Context, p auth.Principal, id int64, req AdminStatusRequest) (*Response, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}
	if !p.IsStaff {
		return nil, apperr.Forbidden(p.Name)
	}

	var u *User
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.byID(ctx, id)
		if err != nil {
			return err
		}
		if u.IsStaff {
			return apperr.BadRequest("Cannot modify admin status of super admin user")
		}
		u.IsAdmin = req.IsAdmin
		return s.repo.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user admin status changed", "user_id", u.ID, "is_admin", u.IsAdmin, "by", p.Name)
	resp := ToResponse(u)
	return &resp, nil
}

// SeedSuperAdmin creates the super admin when it does not exist yet.
// It reports whether an account was created.
func (s *Service) SeedSuperAdmin(ctx context.Context, seed SeedAccount) (bool, error) {
	if seed.Username == "" {
		return false, nil
	}

	created := false
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.repo.GetByUsername(ctx, seed.Username)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		cred, err := auth.HashSecret(seed.Password)
		if err != nil {
			return err
		}
		created = true
		return s.repo.Create(ctx, &User{
			Username:  seed.Username,
			FirstName: seed.FirstName,
			LastName:  seed.LastName,
			Password:  cred,
			IsAdmin:   true,
			IsStaff:   true,
		})
	})
	if err != nil {
		return false, fmt.Errorf("seeding super admin: %w", err)
	}

	if created {
		s.logger.Info("super admin seeded", "username", seed.Username)
	}
	return created, nil
}

// ForgotPassword issues a reset token and hands it to the sender.
func (s *Service) ForgotPassword(ctx context.Context, username string) error {
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return err
	}

	token, err := s.tokens.Issue(ctx, u.ID, s.opts.ResetTokenLength, usertoken.Letters,
		s.opts.ResetTokenExpiry, usertoken.TypeResetPassword)
	if err != nil {
		return err
	}

	if err := s.sender.SendPasswordReset(ctx, u, token); err != nil {
		return apperr.Upstream(err, "An error occurred while attempting to send password reset to user %s", u.Username)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*Response, error) {
	if err := apperr.FromValidation(req.Validate()); err != nil {
		return nil, err
	}

	cred, err := auth.HashSecret(req.Password)
	if err != nil {
		return nil, err
	}

	var u *User
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.byUsername(ctx, req.Username)
		if err != nil {
			return err
		}
		if err := s.tokens.Consume(ctx, u.ID, req.Token, usertoken.TypeResetPassword); err != nil {
			return err
		}
		u.Password = cred
		return s.repo.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("password reset", "user_id", u.ID)
	resp := ToResponse(u)
	return &resp, nil
}

// VerifyToken checks a one-time token without consuming it.
func (s *Service) VerifyToken(ctx context.Context, req VerifyTokenRequest) (bool, error) {
	if err := apperr.FromValidation(req.Validate()); err != nil {
		return false, err
	}

	u, err := s.byUsername(ctx, req.Username)
	if err != nil {
		return false, err
	}
	typ, err := usertoken.ParseType(req.TokenType)
	if err != nil {
		return false, err
	}
	return s.tokens.Verify(ctx, u.ID, req.Token, typ)
}

func (s *Service) byID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User with id: %d does not exist", id)
	}
	return u, err
}

func (s *Service) byUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User with username: %s does not exist", username)
	}
	return u, err
}
