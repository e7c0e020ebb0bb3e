// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
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
	httptransport "data-quality-service/internal/transport/http"
	"data-quality-service/internal/worker"
)

// @title Data Quality Service API
// @version 1.0
// @description Upload datasets, run evaluate/clean/re-evaluate jobs and fetch their reports.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("service", "api").Logger()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("api failed")
	}
	log.Info().Msg("api stopped")
}

func run(cfg config.Config, log zerolog.Logger) error {
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
	m := metrics.New("data_quality")

	var (
		queue service.Queue
		wg    sync.WaitGroup
	)
	switch cfg.DispatchMode {
	case config.DispatchRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		queue = service.NewRedisQueue(rdb, cfg.QueueKey, cfg.ProcessingKey)

	default:
		// Jobs run inside this process; the pool drains in-flight runs on shutdown.
		queue = service.NewMemoryQueue(0)
		runner := agent.NewRunner(store.Jobs, store.Datasets, files,
			agent.WithRecorder(m),
			agent.WithLogger(log),
		)
		pool := worker.NewPool(queue, worker.NewProcessor(runner, log), cfg.Workers, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(ctx)
		}()
	}
	defer func() {
		// Stop claiming and let in-flight runs finish before the store closes.
		stop()
		wg.Wait()
	}()

	jobSvc := service.NewJobService(store.Jobs, queue, files)
	datasetSvc := service.NewDatasetService(store.Datasets, files)

	if cfg.DispatchMode == config.DispatchInline {
		n, err := jobSvc.ResumePending(ctx, 500)
		if err != nil {
			log.Warn().Err(err).Msg("resume pending jobs")
		} else if n > 0 {
			log.Info().Int("jobs", n).Msg("resumed pending jobs")
		}
	}

	h := httptransport.NewHandler(jobSvc, datasetSvc, cfg.MaxUploadBytes)
	router := httptransport.Routes(h, log, m)

	log.Info().
		Str("dispatch", cfg.DispatchMode).
		Int("workers", cfg.Workers).
		Str("storage_root", files.Root()).
		Msg("api started")

	return app.Serve(ctx, app.NewServer(cfg.HTTPAddr, router), log)
}
