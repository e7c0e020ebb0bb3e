package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"data-quality-service/internal/service"
)

type Pool struct {
	queue      service.Queue
	processor  *Processor
	workers    int
	claimDelay time.Duration
	log        zerolog.Logger
}

func NewPool(queue service.Queue, processor *Processor, workers int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
		log:        log.With().Str("component", "pool").Logger(),
	}
}

// Run claims jobs until ctx is done, then waits for in-flight jobs to finish.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info().Int("workers", p.workers).Msg("worker pool started")

	jobCh := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for jobID := range jobCh {
				if err := p.processor.Process(ctx, jobID); err != nil {
					p.log.Error().Int("worker", n).Str("job_id", jobID).Err(err).Msg("process job")
				}

				// Always ack: the job is terminal by now, or it never left PENDING
				// and the runner will refuse a second attempt anyway. The ack must
				// land even during shutdown.
				if err := p.queue.Ack(context.WithoutCancel(ctx), jobID); err != nil {
					p.log.Error().Int("worker", n).Str("job_id", jobID).Err(err).Msg("ack job")
				}
			}
		}(i + 1)
	}

	defer func() {
		close(jobCh)
		wg.Wait()
		p.log.Info().Msg("worker pool stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		jobID, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
		if err != nil {
			if !errors.Is(err, service.ErrQueueEmpty) && ctx.Err() == nil {
				p.log.Warn().Err(err).Msg("claim job")
				// Back off so a broken connection does not spin.
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
				}
			}
			continue
		}
		select {
		case jobCh <- jobID:
		case <-ctx.Done():
			// Claimed but not started: leave it in processing for the reaper.
			return
		}
	}
}

// Reap periodically returns ids stuck in processing to the queue, covering
// workers that died between claim and ack.
func Reap(ctx context.Context, queue service.Queue, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := queue.RequeueStale(ctx, 100)
			if err != nil {
				log.Error().Err(err).Msg("requeue stale jobs")
				continue
			}
			if n > 0 {
				log.Info().Int64("requeued", n).Msg("requeued jobs from processing")
			}
		}
	}
}
