// Package auth implements the credential and session flows: login, register,
// refresh, logout.
package auth

import (
	"time"

	"github.com/hwsystem/hwsystem/internal/identity"
)

// User is a full account record, including the credential hash. Only this
// package sees the hash; everything downstream works with identity.Principal.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         identity.GlobalRole
	Status       identity.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the account to its request-facing identity.
func (u *User) Principal() identity.Principal {
	return identity.Principal{ID: u.ID, Role: u.Role, Status: u.Status}
}

// Session is an audit record of one login, purged after expiry.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
