package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/jobelinc/stocktrack/internal/common"
	"github.com/jobelinc/stocktrack/internal/config"
	"github.com/jobelinc/stocktrack/internal/lock"
	"github.com/jobelinc/stocktrack/internal/notify"
	"github.com/jobelinc/stocktrack/internal/obs"
	"github.com/jobelinc/stocktrack/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	// SMTP delivery is wired per deployment; the default sender drops mail.
	var mailer common.EmailSender = common.NopEmailSender{}

	alerter := notify.EmailAlerter{
		Mail:    mailer,
		Enabled: len(cfg.AlertEmailTo) > 0,
		To:      strings.Join(cfg.AlertEmailTo, ","),
	}
	worker := notify.Worker{
		Alerter: alerter,
		Locker:  lock.Locker{R: redisClient},
		Breaker: resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("email").WithLogger(logger),
		Log:     logger,
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOpts.Addr,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		},
		asynq.Config{
			Concurrency: envInt("WORKER_CONCURRENCY", 5),
			Queues:      map[string]int{notify.QueueName: 1},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskTypeEvent, worker.Handle)

	logger.Info().Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
