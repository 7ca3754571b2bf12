package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hwsystem/hwsystem/internal/classroom"
	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// ClassIDParam is the route parameter carrying the class identifier.
const ClassIDParam = "class_id"

// ClassRoleGuard is the third pipeline layer: the principal's role within
// the class named by the route must be in the allow-set.
type ClassRoleGuard struct {
	resolver *classroom.Resolver
	logger   *slog.Logger
}

// NewClassRoleGuard constructs a ClassRoleGuard.
func NewClassRoleGuard(resolver *classroom.Resolver, logger *slog.Logger) *ClassRoleGuard {
	return &ClassRoleGuard{resolver: resolver, logger: logger}
}

// Require builds the guard for one allow-set. Admin bypass is a first-class
// rule: the top global role satisfies every class-scoped check without a
// membership lookup. Everyone else must hold a membership whose role is in
// the allow-set; non-members are denied, not errored.
func (g *ClassRoleGuard) Require(allowed ...classroom.Role) Guard {
	allowSet := make(map[classroom.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowSet[role] = struct{}{}
	}
	return func(r *http.Request) (context.Context, *Rejection) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			return nil, unauthenticated("authentication required")
		}

		if principal.Role == identity.RoleAdmin {
			return nil, nil
		}

		classID, err := strconv.ParseInt(chi.URLParam(r, ClassIDParam), 10, 64)
		if err != nil || classID <= 0 {
			return nil, &Rejection{
				Status:  http.StatusBadRequest,
				Code:    httpx.CodeValidation,
				Message: "missing or invalid class id",
			}
		}

		role, err := g.resolver.Resolve(r.Context(), classID, principal.ID)
		if err != nil {
			if errors.Is(err, classroom.ErrNotMember) {
				return nil, classForbidden()
			}
			g.logger.Error("class role resolution failed",
				slog.Int64("class_id", classID), slog.Int64("user_id", principal.ID), slog.Any("error", err))
			return nil, unavailable()
		}
		if _, ok := allowSet[role]; !ok {
			return nil, classForbidden()
		}

		membership := classroom.Membership{ClassID: classID, UserID: principal.ID, Role: role}
		return ContextWithMembership(r.Context(), membership), nil
	}
}

func classForbidden() *Rejection {
	return &Rejection{
		Status:  http.StatusForbidden,
		Code:    httpx.CodeClassForbidden,
		Message: "no permission for this class",
	}
}
