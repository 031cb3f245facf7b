// Package models defines server-side data models persisted in the database.
package models

import (
	"strings"
	"time"
)

// Role is the closed set of privilege levels an account can hold.
type Role int

const (
	RoleRegular Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleRegular:
		return "Regular"
	default:
		return "Unknown"
	}
}

func (r Role) IsValid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "regular":
		return RoleRegular, true
	default:
		return RoleRegular, false
	}
}

// Account is a stored identity with credentials, role and activity flag.
type Account struct {
	ID                   string
	Username             string
	PasswordHash         []byte
	PasswordSalt         []byte
	PasswordSetDate      time.Time
	PasswordNeverExpires bool
	Role                 Role
	IsActive             bool
	CreatedAt            time.Time
}

// Clone returns a deep copy, so callers cannot alias stored byte slices.
func (a *Account) Clone() *Account {
	c := *a
	c.PasswordHash = append([]byte(nil), a.PasswordHash...)
	c.PasswordSalt = append([]byte(nil), a.PasswordSalt...)
	return &c
}
