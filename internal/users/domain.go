// Package users implements administrative user management. Role and status
// changes here invalidate the identity cache so the auth pipeline converges
// on the new profile.
package users

import (
	"time"

	"github.com/hwsystem/hwsystem/internal/identity"
)

// User is the management view of an account.
type User struct {
	ID        int64               `json:"id"`
	Username  string              `json:"username"`
	Email     string              `json:"email"`
	Role      identity.GlobalRole `json:"role"`
	Status    identity.Status     `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
