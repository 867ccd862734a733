// Package auth authenticates the two kinds of caller the service accepts:
// human users and instrument clients. Both receive the same kind of HS256
// bearer token; the token carries either a "sub" (username) or a
// "client_id" claim, never both.
//
// The package provides:
//   - PBKDF2-HMAC-SHA256 credential hashing (100k iterations, 128-byte key,
//     32-byte salt) for passwords and client secrets
//   - Token issue and verification, where verification resolves the token
//     to a Principal tagged User or Client
//   - Login and client-login that exchange credentials for a token
//
// Account storage lives in the user and client packages, which implement
// UserDirectory and ClientDirectory.
package auth
