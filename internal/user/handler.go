package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/frahmantamala/identity-service/internal"
	"github.com/frahmantamala/identity-service/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Service:     svc,
	}
}

// GetCurrentUser serves the authenticated user's profile with merged
// permissions. The auth middleware has already placed the user ID in
// context.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "missing authenticated user")
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("failed to load profile", "user_id", userID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "missing authenticated user")
		return
	}

	var dto UpdateProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.UpdateProfile(r.Context(), userID, dto)
	if err != nil {
		var vErr ValidationError
		switch {
		case errors.As(err, &vErr):
			h.WriteError(w, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, ErrNotFound):
			h.WriteError(w, http.StatusNotFound, "user not found")
		default:
			h.Logger.Error("failed to update profile", "user_id", userID, "error", err)
			h.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}
