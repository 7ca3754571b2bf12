// Package identity resolves user identifiers to principals, shielding the
// identity store behind a short-TTL cache.
package identity

// GlobalRole is the system-wide permission tier of a user.
type GlobalRole string

// Global roles, lowest to highest.
const (
	RoleUser    GlobalRole = "user"
	RoleTeacher GlobalRole = "teacher"
	RoleAdmin   GlobalRole = "admin"
)

// Valid reports whether the role is one of the known tiers.
func (r GlobalRole) Valid() bool {
	switch r {
	case RoleUser, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Status is the lifecycle state of a user account.
type Status string

// Account statuses. Only active accounts may authenticate.
const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// Principal is the resolved identity attached to an authenticated request.
// It is produced fresh on each resolution and never mutated in place; a
// profile change replaces the cached value wholesale.
type Principal struct {
	ID     int64      `json:"id"`
	Role   GlobalRole `json:"role"`
	Status Status     `json:"status"`
}

// Active reports whether the account may authenticate.
func (p Principal) Active() bool {
	return p.Status == StatusActive
}
