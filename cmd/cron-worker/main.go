package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/cron"
	"github.com/angelmondragon/supplyhub-backend/internal/deliveryotp"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	"github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/migrate"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
)

const lockKeyFormat = "supplyhub:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(context.Background(), logg, "failed to load config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal(ctx, logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fatal(ctx, logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fatal(ctx, logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		fatal(ctx, logg, "failed to create cron lock", err)
	}

	jobs, err := retentionJobs(cfg.Cron, logg, dbClient, cronMetrics)
	if err != nil {
		fatal(ctx, logg, "failed to build retention jobs", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		fatal(ctx, logg, "failed to create cron service", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(runCtx, "starting cron worker")

	if addr := cfg.App.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(runCtx, metrics.NewServer(addr, prometheus.DefaultGatherer)); err != nil {
				logg.Error(runCtx, "metrics listener stopped", err)
			}
		}()
	}

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(runCtx, logg, "cron worker stopped unexpectedly", err)
	}
	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func retentionJobs(cfg config.CronConfig, logg *logger.Logger, dbClient *db.Client, rec *metrics.CronJobMetrics) ([]cron.Job, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)
	deliveryRepo := deliveryotp.NewRepository(conn)

	sweeps := []struct {
		name      string
		retention time.Duration
		purge     cron.PurgeFunc
	}{
		{"outbox-retention", cfg.OutboxRetention, func(_ context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return outboxRepo.DeletePublishedBefore(tx, cutoff)
		}},
		{"notification-retention", cfg.NotificationRetention, func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return notificationRepo.WithTx(tx).DeleteReadBefore(ctx, cutoff)
		}},
		{"delivery-code-retention", cfg.DeliveryCodeRetention, func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return deliveryRepo.WithTx(tx).DeleteSpentBefore(ctx, cutoff)
		}},
	}

	jobs := make([]cron.Job, 0, len(sweeps))
	for _, sw := range sweeps {
		job, err := cron.NewRetentionJob(cron.RetentionJobParams{
			Name:      sw.name,
			Logger:    logg,
			DB:        dbClient,
			Retention: sw.retention,
			Purge:     sw.purge,
			Metrics:   rec,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sw.name, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func fatal(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
