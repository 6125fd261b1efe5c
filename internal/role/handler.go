package role

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/identity-service/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Registry:    registry,
	}
}

type assignRoleDTO struct {
	RoleName string `json:"role_name"`
}

// AssignRole attaches a role to a user. Assigning a role the user
// already holds reports assigned=false without failing.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	var dto assignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil || dto.RoleName == "" {
		h.WriteError(w, http.StatusBadRequest, "role_name is required")
		return
	}

	added, err := h.Registry.AddRole(r.Context(), userID, dto.RoleName)
	if err != nil {
		h.Logger.Error("failed to assign role", "user_id", userID, "role", dto.RoleName, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{
		"assigned": added,
		"role":     dto.RoleName,
	})
}

// RemoveRole detaches a role from a user. Removing a role the user
// does not hold reports removed=false without failing.
func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	roleName := chi.URLParam(r, "roleName")
	if roleName == "" {
		h.WriteError(w, http.StatusBadRequest, "role name is required")
		return
	}

	removed, err := h.Registry.RemoveRole(r.Context(), userID, roleName)
	if err != nil {
		h.Logger.Error("failed to remove role", "user_id", userID, "role", roleName, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"role":    roleName,
	})
}

func (h *Handler) userIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || userID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return userID, true
}
