package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
	"github.com/hwsystem/hwsystem/internal/token"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the bearer token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	tok := header[len(bearerPrefix):]
	if tok == "" {
		return "", false
	}
	return tok, true
}

// Authenticator is the first pipeline layer: it turns a bearer access token
// into an authenticated principal. Idempotent and side-effect-free beyond
// identity cache population.
type Authenticator struct {
	tokens     *token.Service
	identities *identity.Cache
	logger     *slog.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens *token.Service, identities *identity.Cache, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, identities: identities, logger: logger}
}

// Guard validates the presented access token and attaches the resolved
// principal to the request context. Unknown users and non-active accounts
// are rejected with the same message so the response does not reveal which
// case applied.
func (a *Authenticator) Guard() Guard {
	return func(r *http.Request) (context.Context, *Rejection) {
		raw, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			return nil, unauthenticated("authentication required")
		}

		claims, err := a.tokens.Verify(raw, token.TypeAccess)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrExpired):
				return nil, unauthenticated("token expired")
			case errors.Is(err, token.ErrWrongType):
				return nil, unauthenticated("wrong token type")
			default:
				return nil, unauthenticated("invalid token")
			}
		}

		userID, err := claims.UserID()
		if err != nil {
			return nil, unauthenticated("invalid token")
		}

		principal, err := a.identities.Resolve(r.Context(), userID)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return nil, unauthenticated("unauthorized")
			}
			a.logger.Error("identity resolution failed",
				slog.Int64("user_id", userID), slog.Any("error", err))
			return nil, unavailable()
		}
		if !principal.Active() {
			return nil, unauthenticated("unauthorized")
		}

		return ContextWithPrincipal(r.Context(), principal), nil
	}
}

func unauthenticated(message string) *Rejection {
	return &Rejection{
		Status:  http.StatusUnauthorized,
		Code:    httpx.CodeUnauthenticated,
		Message: message,
	}
}

func unavailable() *Rejection {
	return &Rejection{
		Status:  http.StatusServiceUnavailable,
		Code:    httpx.CodeInternal,
		Message: "service temporarily unavailable",
	}
}
