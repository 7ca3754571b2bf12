// Package classroom resolves a user's role within a single class, backed by
// the membership store and its own TTL cache.
package classroom

import "errors"

// Role is a permission tier scoped to one class.
type Role string

// Class roles.
const (
	RoleStudent             Role = "student"
	RoleClassRepresentative Role = "class_representative"
	RoleTeacher             Role = "teacher"
)

// Valid reports whether the role is one of the known class tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleClassRepresentative, RoleTeacher:
		return true
	}
	return false
}

// Membership ties a user to a class with a class-scoped role. Unique per
// (class, user) pair.
type Membership struct {
	ClassID int64 `json:"class_id"`
	UserID  int64 `json:"user_id"`
	Role    Role  `json:"role"`
}

// ErrNotMember means the user has no membership in the class. It is a
// terminal deny for authorization, not an error condition to retry.
var ErrNotMember = errors.New("classroom: not a member")
