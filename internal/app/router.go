package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hwsystem/hwsystem/internal/auth"
	"github.com/hwsystem/hwsystem/internal/classroom"
	"github.com/hwsystem/hwsystem/internal/guard"
	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
	"github.com/hwsystem/hwsystem/internal/ratelimit"
	"github.com/hwsystem/hwsystem/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	AuthHandler   *auth.Handler
	UsersHandler  *users.Handler
	Authenticator *guard.Authenticator
	RateLimits    *guard.RateLimitGuard
	ClassRoles    *guard.ClassRoleGuard
	Pool          *pgxpool.Pool
}

// NewRouter constructs the chi.Router with the guard chains each route group
// requires. Guard order is fixed: rate limit, then authentication, then role
// checks.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("readiness ping failed", slog.Any("error", err))
				httpx.Error(w, http.StatusServiceUnavailable, httpx.CodeInternal, "database unavailable")
				return
			}
		}
		httpx.Success(w, nil, "ready")
	})

	authn := params.Authenticator.Guard()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(guard.Chain(params.RateLimits.Limit(ratelimit.Login))).
				Post("/login", params.AuthHandler.Login)
			r.With(guard.Chain(params.RateLimits.Limit(ratelimit.Register))).
				Post("/register", params.AuthHandler.Register)
			r.With(guard.Chain(params.RateLimits.Limit(ratelimit.Refresh))).
				Post("/refresh", params.AuthHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(guard.Chain(authn, params.RateLimits.Limit(ratelimit.API)))
				r.Post("/logout", params.AuthHandler.Logout)
				r.Get("/me", params.AuthHandler.Me)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(guard.Chain(authn, params.RateLimits.Limit(ratelimit.API), guard.RequireRole(identity.RoleAdmin)))
			params.UsersHandler.MountRoutes(r)
		})

		r.Route("/classes/{class_id}", func(r chi.Router) {
			r.With(guard.Chain(authn, params.RateLimits.Limit(ratelimit.API),
				params.ClassRoles.Require(classroom.RoleStudent, classroom.RoleClassRepresentative, classroom.RoleTeacher))).
				Get("/membership", membershipHandler)
		})
	})

	return r
}

// membershipHandler echoes the class membership the guard chain resolved.
func membershipHandler(w http.ResponseWriter, r *http.Request) {
	membership, ok := guard.MembershipFromContext(r.Context())
	if !ok {
		// Admins bypass the class-role guard and carry no membership.
		httpx.Success(w, nil, "admin access")
		return
	}
	httpx.Success(w, membership, "")
}
