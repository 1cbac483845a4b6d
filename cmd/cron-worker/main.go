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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luhive/luhive-backend/internal/audience"
	"github.com/luhive/luhive-backend/internal/cron"
	"github.com/luhive/luhive-backend/internal/registrations"
	"github.com/luhive/luhive-backend/internal/reminders"
	"github.com/luhive/luhive-backend/pkg/config"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
	"github.com/luhive/luhive-backend/pkg/metrics"
	"github.com/luhive/luhive-backend/pkg/migrate"
	"github.com/luhive/luhive-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, cfg.App.Env)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
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

	gdb := dbClient.DB()
	dispatcher, err := reminders.NewDispatcher(reminders.DispatcherParams{
		Repo:      reminders.NewRepository(gdb),
		Audience:  audience.NewRepository(gdb),
		Mailer:    mail,
		Logger:    logg,
		BaseURL:   cfg.App.BaseURL(),
		BatchSize: cfg.Reminders.BatchSize,
		Workers:   cfg.Reminders.Workers,
		SendRate:  cfg.Reminders.SendRate,
		SendBurst: cfg.Reminders.SendBurst,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder dispatcher", err)
		os.Exit(1)
	}

	reminderJob, err := cron.NewReminderDispatchJob(cron.ReminderDispatchJobParams{
		Logger:     logg,
		Dispatcher: dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder dispatch job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewVerificationCleanupJob(cron.VerificationCleanupJobParams{
		Logger:     logg,
		Repository: registrations.NewRepository(gdb),
		Retention:  cfg.Registration.VerificationRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verification cleanup job", err)
		os.Exit(1)
	}

	schedule := cron.NewSchedule().
		Add(reminderJob, cfg.Reminders.CronInterval).
		Add(cleanupJob, cfg.Registration.CleanupInterval)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Schedule: schedule,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer := &http.Server{
		Addr:              cfg.Service.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.WarnErr(ctx, "cron worker metrics listener stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
