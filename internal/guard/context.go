// Package guard implements the per-request authorization pipeline: rate
// limit, authentication, global-role check, class-role check. Each stage is a
// pure function over the request; an ordered chain evaluates them and stops
// at the first rejection.
package guard

import (
	"context"

	"github.com/hwsystem/hwsystem/internal/classroom"
	"github.com/hwsystem/hwsystem/internal/identity"
)

type principalContextKey struct{}

type membershipContextKey struct{}

// ContextWithPrincipal stores the authenticated principal in ctx.
func ContextWithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal attached by the
// authentication stage.
func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(identity.Principal)
	return p, ok
}

// ContextWithMembership stores the resolved class membership in ctx.
func ContextWithMembership(ctx context.Context, m classroom.Membership) context.Context {
	return context.WithValue(ctx, membershipContextKey{}, m)
}

// MembershipFromContext extracts the membership attached by the class-role
// stage. Absent for admins, who bypass the membership lookup.
func MembershipFromContext(ctx context.Context) (classroom.Membership, bool) {
	m, ok := ctx.Value(membershipContextKey{}).(classroom.Membership)
	return m, ok
}
