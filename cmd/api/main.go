package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luhive/luhive-backend/api/routes"
	"github.com/luhive/luhive-backend/internal/audience"
	"github.com/luhive/luhive-backend/internal/auth"
	"github.com/luhive/luhive-backend/internal/collaborations"
	"github.com/luhive/luhive-backend/internal/communities"
	"github.com/luhive/luhive-backend/internal/dashboard"
	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/internal/notifications"
	"github.com/luhive/luhive-backend/internal/profiles"
	"github.com/luhive/luhive-backend/internal/registrations"
	"github.com/luhive/luhive-backend/internal/reminders"
	"github.com/luhive/luhive-backend/internal/waitlist"
	"github.com/luhive/luhive-backend/pkg/auth/session"
	"github.com/luhive/luhive-backend/pkg/config"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
	"github.com/luhive/luhive-backend/pkg/metrics"
	"github.com/luhive/luhive-backend/pkg/migrate"
	"github.com/luhive/luhive-backend/pkg/redis"
	"github.com/luhive/luhive-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	transport, err := mailer.NewTransport(cfg.SMTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail transport", err)
		os.Exit(1)
	}
	mail, err := mailer.New(transport, metrics.NewEmailMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}
	broadcaster, err := notifications.NewBroadcaster(mail, cfg.Broadcast.SendInterval, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create broadcaster", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	baseURL := cfg.App.BaseURL()
	profileRepo := profiles.NewRepository(gdb)
	communityRepo := communities.NewRepository(gdb)
	eventRepo := events.NewRepository(gdb)
	audienceRepo := audience.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		ProfileRepo:    profileRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	exitOnErr(logg, "failed to create auth service", err)

	profileService, err := profiles.NewService(profileRepo)
	exitOnErr(logg, "failed to create profile service", err)

	waitlistService, err := waitlist.NewService(waitlist.ServiceParams{
		Repo:     waitlist.NewRepository(gdb),
		Profiles: profileRepo,
		Mailer:   mail,
		Logger:   logg,
		BaseURL:  baseURL,
	})
	exitOnErr(logg, "failed to create waitlist service", err)

	communityService, err := communities.NewService(communities.ServiceParams{
		Repo:     communityRepo,
		Profiles: profileRepo,
		Mailer:   mail,
		Visits:   redisClient,
		Logger:   logg,
		BaseURL:  baseURL,
		NewToken: security.GenerateURLToken,
	})
	exitOnErr(logg, "failed to create community service", err)

	eventService, err := events.NewService(events.ServiceParams{
		Repo:        eventRepo,
		Communities: communityRepo,
		Audience:    audienceRepo,
		Broadcaster: broadcaster,
		Logger:      logg,
		BaseURL:     baseURL,
	})
	exitOnErr(logg, "failed to create event service", err)

	registrationService, err := registrations.NewService(registrations.ServiceParams{
		Repo:     registrations.NewRepository(gdb),
		Mailer:   mail,
		Consumed: redisClient,
		Logger:   logg,
		BaseURL:  baseURL,
		TokenTTL: cfg.Registration.VerificationTokenTTL,
		NewToken: security.GenerateURLToken,
	})
	exitOnErr(logg, "failed to create registration service", err)

	collaborationService, err := collaborations.NewService(collaborations.ServiceParams{
		Repo:        collaborations.NewRepository(gdb),
		Events:      eventRepo,
		Communities: communityRepo,
		Managers:    audienceRepo,
		Mailer:      mail,
		Logger:      logg,
		BaseURL:     baseURL,
	})
	exitOnErr(logg, "failed to create collaboration service", err)

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Repo:        dashboard.NewRepository(gdb),
		Communities: communityRepo,
		Logger:      logg,
	})
	exitOnErr(logg, "failed to create dashboard service", err)

	dispatcher, err := reminders.NewDispatcher(reminders.DispatcherParams{
		Repo:      reminders.NewRepository(gdb),
		Audience:  audienceRepo,
		Mailer:    mail,
		Logger:    logg,
		BaseURL:   baseURL,
		BatchSize: cfg.Reminders.BatchSize,
		Workers:   cfg.Reminders.Workers,
		SendRate:  cfg.Reminders.SendRate,
		SendBurst: cfg.Reminders.SendBurst,
	})
	exitOnErr(logg, "failed to create reminder dispatcher", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx := logg.WithFields(sigCtx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, prometheus.DefaultGatherer, metrics.NewHTTPMetrics(prometheus.DefaultRegisterer), routes.Services{
			Auth:           authService,
			Profiles:       profileService,
			Waitlist:       waitlistService,
			Communities:    communityService,
			Events:         eventService,
			Registrations:  registrationService,
			Collaborations: collaborationService,
			Dashboard:      dashboardService,
			Reminders:      dispatcher,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	// Shutdown waits for in-flight handlers, including on-demand reminder passes.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown incomplete", err)
	}
	if err := broadcaster.Wait(shutdownCtx); err != nil {
		logg.Error(ctx, "background broadcasts still running at exit", err)
	}
	logg.Info(ctx, "api server stopped")
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
