package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTypeBearer is the token_type reported in access token responses.
const TokenTypeBearer = "bearer"

// MaxTokenTTL caps any requested token lifetime.
const MaxTokenTTL = 365 * 24 * time.Hour

// Claims is the bearer token payload. Exactly one of Subject (a username)
// and ClientID (a client identifier) is set.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id,omitempty"`
}

// AccessToken is returned by the login endpoints.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// Subject names the principal a token is issued for.
type Subject struct {
	Kind PrincipalKind
	Name string
}

// UserSubject returns the subject for a username.
func UserSubject(username string) Subject { return Subject{Kind: PrincipalUser, Name: username} }

// ClientSubject returns the subject for a client identifier.
func ClientSubject(identifier string) Subject {
	return Subject{Kind: PrincipalClient, Name: identifier}
}

// Issuer signs bearer tokens and resolves them back to principals.
type Issuer struct {
	secret     []byte
	defaultTTL time.Duration
	users      UserDirectory
	clients    ClientDirectory
	now        func() time.Time
}

// NewIssuer creates an Issuer signing with HS256.
//
// Parameters:
//   - secret: HMAC signing key (config enforces at least 32 characters)
//   - defaultTTL: lifetime used when Issue is called with ttl <= 0
//   - users, clients: directories consulted by Verify
func NewIssuer(secret string, defaultTTL time.Duration, users UserDirectory, clients ClientDirectory) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		users:      users,
		clients:    clients,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// Issue signs a token for subject valid for ttl (or the default TTL when
// ttl <= 0).
func (i *Issuer) Issue(subject Subject, ttl time.Duration) (*AccessToken, error) {
	if subject.Name == "" {
		return nil, errors.New("issuing token: empty subject")
	}
	if ttl <= 0 {
		ttl = i.defaultTTL
	}
	ttl = min(ttl, MaxTokenTTL)

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	switch subject.Kind {
	case PrincipalUser:
		claims.Subject = subject.Name
	case PrincipalClient:
		claims.ClientID = subject.Name
	default:
		return nil, fmt.Errorf("issuing token: unknown subject kind %v", subject.Kind)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	return &AccessToken{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(math.Round(ttl.Seconds())),
	}, nil
}

// Verify checks the signature, requires exactly one subject kind, resolves
// the referenced account and checks expiry. Every failure returns
// ErrTokenInvalid; lookup failures other than "not found" are returned
// wrapped so the caller can log them, but still match ErrTokenInvalid.
func (i *Issuer) Verify(ctx context.Context, tokenString string) (Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return Principal{}, ErrTokenInvalid
	}

	hasUser := claims.Subject != ""
	hasClient := claims.ClientID != ""
	if hasUser == hasClient {
		return Principal{}, ErrTokenInvalid
	}

	var account *Account
	if hasUser {
		account, err = i.users.FindUser(ctx, claims.Subject)
	} else {
		account, err = i.clients.FindClient(ctx, claims.ClientID)
	}
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, ErrTokenInvalid
		}
		return Principal{}, fmt.Errorf("%w: resolving principal: %w", ErrTokenInvalid, err)
	}

	if !i.now().Before(claims.ExpiresAt.Time) {
		return Principal{}, ErrTokenInvalid
	}

	return account.Principal, nil
}
