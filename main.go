package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/isdelr/referral-be/internal/api"
	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/cache"
	"github.com/isdelr/referral-be/internal/config"
	"github.com/isdelr/referral-be/internal/database"
	"github.com/isdelr/referral-be/internal/logger"
	"github.com/isdelr/referral-be/internal/mail"
	"github.com/isdelr/referral-be/internal/monitoring"
	"github.com/isdelr/referral-be/internal/services"
	"github.com/isdelr/referral-be/internal/store"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	ctx := context.Background()

	// Set up database
	db, err := database.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up cache
	rdb, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
	}
	defer rdb.Close()
	userCache := cache.New(rdb, cfg.Cache.UserTTL)

	// Set up credentials
	hasher, err := auth.NewPasswordHasher(auth.HasherConfig{
		Algorithm:     cfg.Password.Algorithm,
		BcryptCost:    cfg.Password.BcryptCost,
		Argon2Memory:  cfg.Password.Argon2Memory,
		Argon2Time:    cfg.Password.Argon2Time,
		Argon2Threads: cfg.Password.Argon2Threads,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid password hashing configuration")
	}

	codec, err := auth.LoadTokenCodec(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath, cfg.JWT.AccessTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load JWT keys")
	}

	// Set up outgoing mail and the optional email checker
	var mailer services.Mailer = mail.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		log.Warn().Msg("SMTP_HOST is not set; reset keys will only be logged")
	}

	var checker services.EmailChecker
	if cfg.Hunter.APIKey != "" {
		checker = mail.NewHunterClient(cfg.Hunter.BaseURL, cfg.Hunter.APIKey)
	}

	// Set up services
	users := store.NewUserStore(db, cfg.Database.Driver, hasher, cfg.Reset.KeyTTL)
	tasks := services.NewTaskRunner(cfg.Server.BackgroundTimeout)
	accountService := services.NewAccountService(users, userCache, codec, hasher, mailer, tasks)
	infoService := services.NewInfoService(users, userCache, checker, tasks)
	sessionService := services.NewSessionService(codec, users, userCache)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(users, cfg.Reset.SweepSchedule, cfg.Reset.KeyTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	go scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Accounts:       accountService,
		Info:           infoService,
		Sessions:       sessionService,
		Health:         users,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain detached cache writes and mail before closing their clients.
	tasks.Wait()
	log.Info().Msg("Server exiting")
}
