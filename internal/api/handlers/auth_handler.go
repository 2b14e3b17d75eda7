package handlers

import (
	"net/http"
	"strings"

	"github.com/isdelr/referral-be/internal/models"
	"github.com/isdelr/referral-be/internal/services"
)

// AuthHandler handles registration, login and password reset.
type AuthHandler struct {
	service services.AccountServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AccountServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username     string `json:"username" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=320"`
	Password     string `json:"password" validate:"required"`
	ReferralCode string `json:"referral_code"`
}

// ResetPasswordPayload defines the structure for completing a password reset.
type ResetPasswordPayload struct {
	Email       string `json:"email" validate:"required,email"`
	ResetKey    string `json:"resetkey" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Register(r.Context(), models.Registration{
		Username:     strings.TrimSpace(payload.Username),
		Email:        strings.TrimSpace(payload.Email),
		Password:     payload.Password,
		ReferralCode: strings.TrimSpace(payload.ReferralCode),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login exchanges form-encoded credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	token, err := h.service.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// RequestPasswordReset mails a reset key to the address in the email query parameter.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "email is required")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), email); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, "Key for reset password has been sent to your email.")
}

// CompletePasswordReset sets a new password using a mailed reset key.
func (h *AuthHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload ResetPasswordPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.CompletePasswordReset(r.Context(), strings.TrimSpace(payload.Email), payload.ResetKey, payload.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, "Password updated")
}
