package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/services"
	"github.com/rs/zerolog/hlog"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// InfoHandler serves anonymous referral lookups.
type InfoHandler struct {
	service services.InfoServiceProvider
	health  Pinger
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(service services.InfoServiceProvider, health Pinger) *InfoHandler {
	return &InfoHandler{service: service, health: health}
}

// GetCode returns the active referral code of the user with the given email.
func (h *InfoHandler) GetCode(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(chi.URLParam(r, "email"))

	info, err := h.service.ReferralCodeByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Referrals lists the users referred by referrer_id.
func (h *InfoHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "referrer_id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "referrer_id must be a UUID")
		return
	}

	infos, err := h.service.ReferralsOf(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// CheckEmail returns the verifier's report for the email query parameter.
func (h *InfoHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "email is required")
		return
	}

	report, err := h.service.CheckEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Health reports whether the database is reachable.
func (h *InfoHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Health check failed")
		writeDetail(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
