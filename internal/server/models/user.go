// Package models holds the persistence-level types of the server.
package models

import "time"

// User is a stored identity record. PasswordHash is a bcrypt hash and must
// never leave the server; boundaries serialize users through their own DTOs.
type User struct {
	ID           string
	Email        string
	UserName     string
	PasswordHash string
	Profile      map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch lists the fields an update may change. Nil means "keep".
// A non-nil Profile replaces the stored profile as a whole.
type UserPatch struct {
	Email        *string
	UserName     *string
	PasswordHash *string
	Profile      map[string]any
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.UserName == nil && p.PasswordHash == nil && p.Profile == nil
}

// Apply returns a copy of u with the patch applied. The caller sets UpdatedAt.
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.UserName != nil {
		u.UserName = *p.UserName
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Profile != nil {
		u.Profile = p.Profile
	}
	return u
}
