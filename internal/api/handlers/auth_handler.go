package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/adboard-be/internal/auth"
	"github.com/isdelr/adboard-be/internal/models"
	"github.com/isdelr/adboard-be/internal/services"
)

// AuthHandler handles login and registration.
type AuthHandler struct {
	service services.UserServiceProvider
	tokens  *auth.TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.UserServiceProvider, tokens *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{service: service, tokens: tokens}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username" validate:"required,min=4,max=32"`
	Password string `json:"password" validate:"required,min=8,max=16"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username  string      `json:"username" validate:"required,email,min=4,max=32"`
	Password  string      `json:"password" validate:"required,min=8,max=16"`
	FirstName string      `json:"firstName" validate:"required,min=2,max=16"`
	LastName  string      `json:"lastName" validate:"required,min=2,max=16"`
	Phone     string      `json:"phone" validate:"required,ruphone"`
	Role      models.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// Login checks credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Username).Msg("Failed authentication attempt")
		writeError(w, r, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate JWT")
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Register creates a new account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	err := h.service.Register(r.Context(), services.Registration{
		Email:     payload.Username,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		Role:      payload.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
