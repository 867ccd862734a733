package user

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/nerrad567/potentiostat-core/internal/auth"
)

// Domain errors for the user package.
var (
	// ErrUserNotFound is returned when no live user matches the lookup.
	ErrUserNotFound = errors.New("user: not found")

	// ErrUserExists is returned when a username, email or phone number
	// collides with another user.
	ErrUserExists = errors.New("user: already exists")
)

// User is a human account.
type User struct {
	ID          int64
	Username    string
	Email       string
	PhoneNumber string
	FirstName   string
	MiddleName  string
	LastName    string
	Password    auth.Credential
	// IsAdmin grants access to every experiment and to account administration.
	IsAdmin bool
	// IsStaff marks the seeded super admin. It is set once and never changed.
	IsStaff   bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Principal returns the auth view of u.
func (u *User) Principal() auth.Principal {
	return auth.Principal{
		Kind:    auth.PrincipalUser,
		ID:      u.ID,
		Name:    u.Username,
		IsAdmin: u.IsAdmin,
		IsStaff: u.IsStaff,
	}
}

// Response is the public representation of a user.
type Response struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	IsAdmin     bool    `json:"is_admin"`
	IsStaff     bool    `json:"is_staff"`
}

// ToResponse maps u to its public representation.
func ToResponse(u *User) Response {
	return Response{
		ID:          u.ID,
		Username:    u.Username,
		Email:       optional(u.Email),
		PhoneNumber: optional(u.PhoneNumber),
		FirstName:   optional(u.FirstName),
		LastName:    optional(u.LastName),
		IsAdmin:     u.IsAdmin,
		IsStaff:     u.IsStaff,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateRequest registers a new user.
type CreateRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Validate checks the request shape. Uniqueness is checked by the service.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required.Error("User username cannot be null")),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Required.Error("User password cannot be null")),
	)
}

// UpdateRequest replaces a user's profile and password. The new username is
// the email, or the phone number when email is empty.
type UpdateRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name"`
	LastName    string `json:"last_name"`
	Password    string `json:"password"`
}

// Validate checks the request shape; region is the default phone region.
func (r UpdateRequest) Validate(region string) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("User email cannot be null"), is.Email),
		validation.Field(&r.PhoneNumber,
			validation.Required.Error("User phone number cannot be null"),
			phoneRule(region)),
		validation.Field(&r.FirstName, validation.Required.Error("User first name cannot be null")),
		validation.Field(&r.MiddleName, validation.Required.Error("User middle name cannot be null")),
		validation.Field(&r.LastName, validation.Required.Error("User last name cannot be null")),
		validation.Field(&r.Password, validation.Required.Error("User password cannot be null")),
	)
}

// AdminStatusRequest grants or revokes admin rights.
type AdminStatusRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// SearchQuery filters users by substring. Empty fields are ignored.
type SearchQuery struct {
	Username   string
	Email      string
	FirstName  string
	MiddleName string
	LastName   string
}

// ResetPasswordRequest sets a new password using a reset token.
type ResetPasswordRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// Validate checks the request shape.
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Token, validation.Required),
	)
}

// VerifyTokenRequest checks a one-time token without consuming it.
type VerifyTokenRequest struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// Validate checks the request shape.
func (r VerifyTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.TokenType, validation.Required),
	)
}
