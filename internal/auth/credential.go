package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2-HMAC-SHA256 parameters for passwords and client secrets.
const (
	kdfIterations = 100_000
	kdfKeyLen     = 128
	kdfSaltLen    = 32
)

// Credential is a stored secret: the derived digest and its unique salt.
type Credential struct {
	Hash []byte
	Salt []byte
}

// HashSecret derives a Credential for a password or client secret using a
// fresh random salt.
func HashSecret(secret string) (Credential, error) {
	salt := make([]byte, kdfSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, fmt.Errorf("generating salt: %w", err)
	}

	return Credential{
		Hash: derive(secret, salt),
		Salt: salt,
	}, nil
}

// VerifySecret reports whether secret matches the stored credential.
// The comparison runs in constant time.
func VerifySecret(secret string, c Credential) bool {
	if len(c.Hash) == 0 || len(c.Salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(derive(secret, c.Salt), c.Hash) == 1
}

func derive(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, kdfIterations, kdfKeyLen, sha256.New)
}

// decoy is verified against when an account does not exist, so a failed
// login takes the same time whether or not the name is known.
var decoy = Credential{
	Hash: make([]byte, kdfKeyLen),
	Salt: make([]byte, kdfSaltLen),
}
