// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"data-quality-service/internal/agent"
	"data-quality-service/internal/app"
	"data-quality-service/internal/config"
	"data-quality-service/internal/logging"
	"data-quality-service/internal/metrics"
	"data-quality-service/internal/service"
	"data-quality-service/internal/storage"
	"data-quality-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("service", "worker").Logger()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}

func run(cfg config.Config, log zerolog.Logger) error {
	if cfg.DispatchMode != config.DispatchRedis {
		return fmt.Errorf("the worker needs DISPATCH_MODE=%s, got %q", config.DispatchRedis, cfg.DispatchMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := storage.NewLocal(cfg.StorageRoot)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	queue := service.NewRedisQueue(rdb, cfg.QueueKey, cfg.ProcessingKey)

	m := metrics.New("data_quality")
	if cfg.MetricsAddr != "" {
		go func() {
			if err := app.Serve(ctx, app.NewServer(cfg.MetricsAddr, m.Handler()), log); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	// Returns jobs stuck in processing to the queue when a worker died mid-run.
	go worker.Reap(ctx, queue, cfg.RequeueInterval, log)

	runner := agent.NewRunner(store.Jobs, store.Datasets, files,
		agent.WithRecorder(m),
		agent.WithLogger(log),
	)
	processor := worker.NewProcessor(runner, log)

	log.Info().
		Int("workers", cfg.Workers).
		Str("redis_addr", cfg.RedisAddr).
		Str("queue_key", cfg.QueueKey).
		Str("processing_key", cfg.ProcessingKey).
		Str("storage_root", files.Root()).
		Msg("worker started")

	worker.NewPool(queue, processor, cfg.Workers, log).Run(ctx)
	return nil
}
