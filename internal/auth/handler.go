package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hwsystem/hwsystem/internal/guard"
	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
	"github.com/hwsystem/hwsystem/internal/token"
)

// Handler wires the HTTP endpoints for authentication flows. Guard chains
// are attached by the router; handlers here assume their chain already ran.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	validator     *validator.Validate
	secureCookies bool
}

// NewHandler constructs a Handler. secureCookies should be set in
// production so refresh cookies carry the Secure attribute.
func NewHandler(logger *slog.Logger, service *Service, secureCookies bool) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		validator:     validator.New(),
		secureCookies: secureCookies,
	}
}

type loginRequest struct {
	Username   string `json:"username" validate:"required,min=3"`
	Password   string `json:"password" validate:"required,min=8"`
	RememberMe bool   `json:"remember_me"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type userPayload struct {
	ID       int64               `json:"id"`
	Username string              `json:"username"`
	Email    string              `json:"email"`
	Role     identity.GlobalRole `json:"role"`
	Status   identity.Status     `json:"status"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        userPayload `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login authenticates credentials, returns an access token in the body and
// sets the refresh token cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "username and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password, req.RememberMe, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, httpx.CodeInvalidCredentials, "username or password is incorrect")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	http.SetCookie(w, token.NewRefreshCookie(result.RefreshToken, result.RefreshTTL, h.secureCookies))
	httpx.Success(w, loginResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.AccessExpiresIn,
		User:        toUserPayload(result.User),
	}, "login successful")
}

// Register creates a new account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid registration details")
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, httpx.ErrDuplicate) {
			httpx.Error(w, http.StatusConflict, httpx.CodeDuplicate, "username or email already taken")
			return
		}
		h.logger.Error("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.Success(w, toUserPayload(user), "registration successful")
}

// Refresh exchanges the refresh token cookie for a new access token. An
// invalid or expired refresh token clears the cookie so clients stop
// retrying with it.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := token.RefreshTokenFromRequest(r)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "authentication required")
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, httpx.ErrUnavailable) {
			httpx.RespondError(w, err)
			return
		}
		http.SetCookie(w, token.ClearRefreshCookie(h.secureCookies))
		httpx.Error(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "login expired, please login again")
		return
	}

	httpx.Success(w, refreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   h.service.AccessExpirySeconds(),
	}, "token refreshed")
}

// Logout clears the refresh cookie and drops the caller's session records.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if principal, ok := guard.PrincipalFromContext(r.Context()); ok {
		h.service.Logout(r.Context(), principal.ID)
	}
	http.SetCookie(w, token.ClearRefreshCookie(h.secureCookies))
	httpx.Success(w, nil, "logout successful")
}

// Me returns the authenticated principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := guard.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "authentication required")
		return
	}
	httpx.Success(w, principal, "ok")
}

func toUserPayload(user *User) userPayload {
	return userPayload{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Status:   user.Status,
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
