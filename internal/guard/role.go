package guard

import (
	"context"
	"net/http"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// RequireRole is the second pipeline layer: the principal's global role must
// be in the route's allow-set. Pure check, no I/O.
func RequireRole(allowed ...identity.GlobalRole) Guard {
	allowSet := make(map[identity.GlobalRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowSet[role] = struct{}{}
	}
	return func(r *http.Request) (context.Context, *Rejection) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			// Authentication layer did not run; treat as not logged in.
			return nil, unauthenticated("authentication required")
		}
		if _, ok := allowSet[principal.Role]; !ok {
			return nil, &Rejection{
				Status:  http.StatusForbidden,
				Code:    httpx.CodeForbidden,
				Message: "access denied",
			}
		}
		return nil, nil
	}
}
