package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/platform/httpx"
)

// GrantAdmin is the mutable grant surface exposed to administrators.
// Implemented by *GrantStore.
type GrantAdmin interface {
	GrantSource
	Granter
	Add(ctx context.Context, roleID int64, permissionName string) error
	Remove(ctx context.Context, roleID int64, permissionName string) error
	ReplaceAll(ctx context.Context, roleID int64, permissionNames []string) error
}

// Handler serves the administrative RBAC surface: catalog introspection,
// templates, role creation and grant mutation. Unlike the gate it
// returns structured results, and validation failures propagate to the
// caller as problem responses.
type Handler struct {
	logger   *slog.Logger
	grants   GrantAdmin
	registry *Registry
	resolver *Resolver
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, grants GrantAdmin, registry *Registry, resolver *Resolver) *Handler {
	return &Handler{
		logger:   logger,
		grants:   grants,
		registry: registry,
		resolver: resolver,
		validate: validator.New(),
	}
}

// MountRoutes registers the admin routes behind the gate.
func (h *Handler) MountRoutes(r chi.Router, gate Gate) {
	r.Group(func(r chi.Router) {
		r.Use(gate.Require("permissions", "read"))
		r.Get("/permissions", h.listPermissions)
		r.Get("/permissions/grouped", h.listPermissionsGrouped)
		r.Get("/templates", h.listTemplates)
	})
	r.Group(func(r chi.Router) {
		r.Use(gate.Require("roles", "create"))
		r.Post("/roles", h.createCustomRole)
		r.Post("/templates/{name}/roles", h.createFromTemplate)
	})
	r.Group(func(r chi.Router) {
		r.Use(gate.Require("roles", "read"))
		r.Get("/roles/{roleID}/permissions", h.listRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(gate.Require("roles", "update"))
		r.Post("/roles/{roleID}/permissions", h.addGrants)
		r.Put("/roles/{roleID}/permissions", h.replaceGrants)
		r.Delete("/roles/{roleID}/permissions/{permission}", h.removeGrant)
		r.Post("/roles/{roleID}/cache/invalidate", h.invalidateRole)
		r.Post("/cache/invalidate", h.invalidateAll)
	})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": AllPermissions()})
}

func (h *Handler) listPermissionsGrouped(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"resources": PermissionsByResource()})
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": RoleTemplates()})
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	Description string   `json:"description" validate:"max=256"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

func (h *Handler) createCustomRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.registry.CreateCustomRole(r.Context(), req.Name, req.Description, req.Permissions)
	if err != nil {
		var invalid *InvalidPermissionSetError
		if errors.As(err, &invalid) {
			httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
				"title":               "Invalid Permission Set",
				"status":              http.StatusUnprocessableEntity,
				"invalid_permissions": invalid.Names,
			})
			return
		}
		h.logger.Error("create custom role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) createFromTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := TemplateByName(chi.URLParam(r, "name"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role template")
		return
	}
	role, err := h.registry.CreateRoleFromTemplate(r.Context(), tpl)
	if err != nil {
		h.logger.Error("create role from template", slog.String("template", tpl.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	grants, err := h.grants.ListByRole(r.Context(), roleID)
	if err != nil {
		h.logger.Error("list role grants", slog.Int64("role_id", roleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type grantView struct {
		RoleGrant
		Registered bool `json:"registered"`
	}
	views := make([]grantView, len(grants))
	for i, g := range grants {
		views[i] = grantView{RoleGrant: g, Registered: IsValidPermission(g.PermissionName)}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role_id": roleID, "grants": views})
}

type grantNamesRequest struct {
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

func (h *Handler) addGrants(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req grantNamesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	written, err := h.grants.AddMany(r.Context(), roleID, req.Permissions)
	if err != nil {
		h.logger.Error("add grants", slog.Int64("role_id", roleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role_id": roleID, "granted": written})
}

func (h *Handler) replaceGrants(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req grantNamesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.grants.ReplaceAll(r.Context(), roleID, req.Permissions); err != nil {
		h.logger.Error("replace grants", slog.Int64("role_id", roleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role_id": roleID, "permissions": req.Permissions})
}

func (h *Handler) removeGrant(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "permission")
	if err := h.grants.Remove(r.Context(), roleID, name); err != nil {
		h.logger.Error("remove grant", slog.Int64("role_id", roleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.resolver.InvalidateRole(r.Context(), roleID); err != nil {
		h.logger.Warn("invalidate role cache", slog.Int64("role_id", roleID), slog.Any("error", err))
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) invalidateAll(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.InvalidateAll(r.Context()); err != nil {
		h.logger.Warn("invalidate rbac cache", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", "role id must be a positive integer")
		return 0, false
	}
	return id, true
}
