package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/advicly/calendar-sync/internal/application"
	"github.com/advicly/calendar-sync/internal/config"
	"github.com/advicly/calendar-sync/internal/google"
	httptransport "github.com/advicly/calendar-sync/internal/http"
	"github.com/advicly/calendar-sync/internal/logging"
	"github.com/advicly/calendar-sync/internal/persistence/sqlite"
	"github.com/advicly/calendar-sync/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stdout, "info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	connectionRepo := sqlite.NewConnectionRepository(storage)
	channelRepo := sqlite.NewWatchChannelRepository(storage)
	meetingRepo := sqlite.NewMeetingRepository(storage)
	tokenRepo := sqlite.NewTokenRepository(storage)
	auditRepo := sqlite.NewAuditRepository(storage)

	encryptor := security.NewTokenEncryptor(cfg.EncryptionKey)
	if !encryptor.Enabled() {
		logger.Warn("token encryption disabled, SYNCD_ENCRYPTION_KEY is not set")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     oauthgoogle.Endpoint,
	}
	calendarClient := google.NewClient(oauthConfig, tokenRepo, encryptor, cfg.WebhookURL, now)

	audit := application.NewAuditLogger(auditRepo, idGenerator, now)
	reconcileService := application.NewReconcileService(connectionRepo, meetingRepo, calendarClient, audit, idGenerator, now)
	watchService := application.NewWatchService(channelRepo, connectionRepo, calendarClient, audit, cfg.WebhookURL, now)
	webhookService := application.NewWebhookService(channelRepo, calendarClient, reconcileService, now)
	renewalService := application.NewRenewalService(channelRepo, connectionRepo, watchService, audit, now)
	renewalService.SetInterval(cfg.RenewalInterval)
	syncScheduler := application.NewSyncScheduler(connectionRepo, reconcileService)

	go renewalService.Run(ctx)
	go syncScheduler.Run(ctx)

	webhookHandler := httptransport.NewWebhookHandler(webhookService, logger)
	watchHandler := httptransport.NewWatchHandler(watchService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Webhook: webhookHandler,
		Watch:   watchHandler,
		Health: func(w http.ResponseWriter, r *http.Request) {
			if err := storage.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		},
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("calendar sync API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
