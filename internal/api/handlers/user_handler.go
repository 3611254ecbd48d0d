package handlers

import (
	"net/http"

	"github.com/isdelr/adboard-be/internal/services"
)

// UserHandler handles HTTP requests for the caller's profile.
type UserHandler struct {
	service        services.UserServiceProvider
	maxUploadBytes int64
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, maxUploadBytes int64) *UserHandler {
	return &UserHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// UpdateUserPayload carries optional profile fields.
type UpdateUserPayload struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

// NewPasswordPayload is the body of a password change.
type NewPasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// GetMe returns the authenticated user's profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	profile, err := h.service.GetCurrent(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateMe changes the fields present in the request body.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	var payload UpdateUserPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	updated, err := h.service.Update(r.Context(), user, services.ProfileUpdate{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// SetPassword changes the caller's password.
func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	var payload NewPasswordPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), user, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UpdateImage replaces the caller's avatar.
func (h *UserHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}
	image, err := formImage(r, "image")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid image")
		return
	}

	if err := h.service.ReplaceAvatar(r.Context(), user, image); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetImage serves a user's avatar.
func (h *UserHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	data, err := h.service.FetchAvatar(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeImage(w, data)
}
