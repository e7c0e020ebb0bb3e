package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"data-quality-service/internal/agent"
)

// JobRunner is implemented by agent.Runner.
type JobRunner interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

type Processor struct {
	runner JobRunner
	log    zerolog.Logger
}

func NewProcessor(runner JobRunner, log zerolog.Logger) *Processor {
	return &Processor{runner: runner, log: log.With().Str("component", "processor").Logger()}
}

// Process runs one claimed job. A redelivered id whose job already left
// PENDING is skipped, not reported as an error.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	start := time.Now()

	id, err := uuid.Parse(jobID)
	if err != nil {
		p.log.Error().Str("job_id", jobID).Err(err).Msg("parse job id")
		return fmt.Errorf("parse job id %q: %w", jobID, err)
	}

	log := p.log.With().Str("job_id", id.String()).Logger()
	log.Info().Str("status", "claimed").Msg("job claimed")

	if err := p.runner.Run(ctx, id); err != nil {
		if errors.Is(err, agent.ErrNotRunnable) {
			log.Warn().Err(err).Msg("skip redelivered job")
			return nil
		}
		log.Error().Err(err).Int64("duration_ms", time.Since(start).Milliseconds()).Msg("run job")
		return err
	}

	log.Info().Int64("duration_ms", time.Since(start).Milliseconds()).Msg("job processed")
	return nil
}
