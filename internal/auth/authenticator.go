package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
)

// Login failure messages.
const (
	msgBadUserCredentials   = "Incorrect username or password"
	msgBadClientCredentials = "Incorrect client identifier or secret"
)

// Authenticator exchanges user and client credentials for bearer tokens.
type Authenticator struct {
	users   UserDirectory
	clients ClientDirectory
	issuer  *Issuer
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users UserDirectory, clients ClientDirectory, issuer *Issuer) *Authenticator {
	return &Authenticator{users: users, clients: clients, issuer: issuer}
}

// Login verifies a username and password. expiresIn (seconds) overrides the
// default token lifetime when positive.
func (a *Authenticator) Login(ctx context.Context, username, password string, expiresIn int) (*AccessToken, error) {
	account, err := a.users.FindUser(ctx, username)
	if err := checkAccount(account, err, password); err != nil {
		if errors.Is(err, errBadCredentials) {
			return nil, apperr.Unauthorized(msgBadUserCredentials)
		}
		return nil, fmt.Errorf("authenticating user: %w", err)
	}

	return a.issuer.Issue(UserSubject(account.Name), seconds(expiresIn))
}

// ClientLogin verifies a client identifier and secret.
func (a *Authenticator) ClientLogin(ctx context.Context, identifier, secret string, expiresIn int) (*AccessToken, error) {
	account, err := a.clients.FindClient(ctx, identifier)
	if err := checkAccount(account, err, secret); err != nil {
		if errors.Is(err, errBadCredentials) {
			return nil, apperr.Unauthorized(msgBadClientCredentials)
		}
		return nil, fmt.Errorf("authenticating client: %w", err)
	}

	return a.issuer.Issue(ClientSubject(account.Name), seconds(expiresIn))
}

var errBadCredentials = errors.New("bad credentials")

func checkAccount(account *Account, lookupErr error, secret string) error {
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrPrincipalNotFound) {
			VerifySecret(secret, decoy)
			return errBadCredentials
		}
		return lookupErr
	}
	if !VerifySecret(secret, account.Credential) {
		return errBadCredentials
	}
	return nil
}

// seconds converts a requested lifetime, clamping before the multiply so
// huge values cannot wrap around.
func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	if n >= int(MaxTokenTTL/time.Second) {
		return MaxTokenTTL
	}
	return time.Duration(n) * time.Second
}
