package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/isdelr/referral-be/internal/services"
)

// DefaultExpireDays is the referral code lifetime used when the request
// does not specify one.
const DefaultExpireDays = 30

// UserHandler handles requests of the authenticated user about their own account.
type UserHandler struct {
	service services.AccountServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.AccountServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// UpdatePayload defines the structure for profile updates.
type UpdatePayload struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required"`
}

// GetMe returns the authenticated user.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe overwrites the authenticated user's username, email and password.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload UpdatePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user, models.ProfileUpdate{
		Username: strings.TrimSpace(payload.Username),
		Email:    strings.TrimSpace(payload.Email),
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteMe deactivates the authenticated user.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, "User is deactivated")
}

// IssueReferralCode creates a referral code valid for expire_days days.
func (h *UserHandler) IssueReferralCode(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	days := DefaultExpireDays
	if raw := r.URL.Query().Get("expire_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusUnprocessableEntity, "expire_days must be a positive integer")
			return
		}
		days = n
	}

	grant, err := h.service.IssueReferralCode(r.Context(), user, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// RevokeReferralCode removes the authenticated user's referral code.
func (h *UserHandler) RevokeReferralCode(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.RevokeReferralCode(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, "Referral code is deleted")
}

// MyReferrals lists the users who registered with the authenticated user's codes.
func (h *UserHandler) MyReferrals(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	referrals, err := h.service.MyReferrals(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, referrals)
}

func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, errors.New("user missing from request context"))
	}
	return user, ok
}
