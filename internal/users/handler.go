package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// Handler wires admin-only user management endpoints. The router attaches
// the guard chain requiring the admin global role.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user management routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{user_id}", h.getUser)
	r.Put("/{user_id}/role", h.changeRole)
	r.Put("/{user_id}/status", h.changeStatus)
}

type changeRoleRequest struct {
	Role identity.GlobalRole `json:"role"`
}

type changeStatusRequest struct {
	Status identity.Status `json:"status"`
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid user id")
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, user, "ok")
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid user id")
		return
	}
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
		return
	}
	if err := h.service.ChangeRole(r.Context(), id, req.Role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("role changed", slog.Int64("user_id", id), slog.String("role", string(req.Role)))
	httpx.Success(w, nil, "role updated")
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid user id")
		return
	}
	var req changeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
		return
	}
	if err := h.service.ChangeStatus(r.Context(), id, req.Status); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("status changed", slog.Int64("user_id", id), slog.String("status", string(req.Status)))
	httpx.Success(w, nil, "status updated")
}

func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
