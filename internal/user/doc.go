// Package user manages human accounts: registration, profile updates,
// admin rights, the seeded super admin and password reset.
//
// Directory adapts the repository to auth.UserDirectory so bearer tokens
// carrying a username resolve to a user principal.
package user
