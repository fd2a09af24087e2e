package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/infinity-labs/dominion/internal/platform/httpx"
)

// Handler exposes the decision engine and the principal capability
// surface over JSON.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{
		logger:   logger,
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers the authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Route("/principals/{kind}/{id}", func(r chi.Router) {
		r.Post("/allow", h.allow)
		r.Post("/deny", h.deny)
		r.Post("/roles", h.addRole)
		r.Delete("/roles/{role}", h.removeRole)
		r.Get("/roles/{role}", h.hasRole)
	})
}

type checkRequest struct {
	PrincipalKind string `json:"principal_kind" validate:"required"`
	PrincipalID   int64  `json:"principal_id" validate:"required"`
	Permission    string `json:"permission" validate:"required"`
	TenantID      *int64 `json:"tenant_id"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := h.engine.Principal(req.PrincipalKind, req.PrincipalID)
	allowed, err := principal.HasPermission(r.Context(), req.Permission, req.TenantID)
	if err != nil {
		h.logger.Error("permission check", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

type grantRequest struct {
	Permission string `json:"permission" validate:"required"`
	TenantID   *int64 `json:"tenant_id"`
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request) {
	h.grant(w, r, EffectAllow)
}

func (h *Handler) deny(w http.ResponseWriter, r *http.Request) {
	h.grant(w, r, EffectDeny)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request, effect Effect) {
	principal, ok := h.principalFromRoute(w, r)
	if !ok {
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var err error
	if effect == EffectDeny {
		err = principal.Deny(r.Context(), req.Permission, req.TenantID)
	} else {
		err = principal.Allow(r.Context(), req.Permission, req.TenantID)
	}
	if err != nil {
		h.logger.Error("grant mutation", slog.String("effect", string(effect)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type roleRequest struct {
	Role     string `json:"role" validate:"required"`
	TenantID *int64 `json:"tenant_id"`
}

func (h *Handler) addRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principalFromRoute(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := principal.AddRole(r.Context(), req.Role, req.TenantID); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Role Not Found", err.Error())
			return
		}
		h.logger.Error("add role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principalFromRoute(w, r)
	if !ok {
		return
	}
	tenant, ok := tenantQueryParam(w, r)
	if !ok {
		return
	}
	if err := principal.RemoveRole(r.Context(), chi.URLParam(r, "role"), tenant); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Role Not Found", err.Error())
			return
		}
		h.logger.Error("remove role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type hasRoleResponse struct {
	HasRole bool `json:"has_role"`
}

func (h *Handler) hasRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principalFromRoute(w, r)
	if !ok {
		return
	}
	tenant, ok := tenantQueryParam(w, r)
	if !ok {
		return
	}
	held, err := principal.HasRole(r.Context(), chi.URLParam(r, "role"), tenant)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Role Not Found", err.Error())
			return
		}
		h.logger.Error("has role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, hasRoleResponse{HasRole: held})
}

func (h *Handler) principalFromRoute(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	kind := chi.URLParam(r, "kind")
	rawID := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || kind == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Principal", "principal reference must be {kind}/{numeric id}")
		return nil, false
	}
	return h.engine.Principal(kind, id), true
}

func tenantQueryParam(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("tenant_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", "tenant_id must be numeric")
		return nil, false
	}
	return &id, true
}
