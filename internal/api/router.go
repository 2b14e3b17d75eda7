package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/referral-be/internal/api/handlers"
	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/services"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Accounts       services.AccountServiceProvider
	Info           services.InfoServiceProvider
	Sessions       auth.SessionResolver
	Health         handlers.Pinger
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Accounts)
	userHandler := handlers.NewUserHandler(deps.Accounts)
	infoHandler := handlers.NewInfoHandler(deps.Info, deps.Health)
	sessions := auth.NewMiddleware(deps.Sessions)

	r.Get("/healthz", infoHandler.Health)

	r.Post("/registration", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Get("/resetpassword", authHandler.RequestPasswordReset)
	r.Patch("/resetpassword", authHandler.CompletePasswordReset)

	r.Get("/getcode/{email}", infoHandler.GetCode)
	r.Get("/referrals/{referrer_id}", infoHandler.Referrals)
	r.Get("/checkemail", infoHandler.CheckEmail)

	r.Route("/user/me", func(r chi.Router) {
		r.Use(sessions.RequireActiveUser)
		r.Get("/", userHandler.GetMe)
		r.Patch("/", userHandler.UpdateMe)
		r.Delete("/", userHandler.DeleteMe)
		r.Patch("/referralcode", userHandler.IssueReferralCode)
		r.Delete("/referralcode", userHandler.RevokeReferralCode)
		r.Get("/referrals", userHandler.MyReferrals)
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}
