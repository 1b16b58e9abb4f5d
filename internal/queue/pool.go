// Package queue runs the fixed-size worker pool that drains the durable job
// store. The store is the only queue: nothing is buffered in memory, so the
// pool can be restarted (or scaled across processes) without losing work.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cirrohost/provisiond/internal/domain"
)

// Aggregator re-evaluates an order's activation after a job completes.
type Aggregator interface {
	JobCompleted(ctx context.Context, orderID string) error
}

// Options tune the pool. Zero values fall back to the defaults.
type Options struct {
	Workers        int           // concurrent workers, default 3
	PollInterval   time.Duration // idle wait between claim attempts, default 5s
	HandlerTimeout time.Duration // per-job handler deadline, default 60s
	Logger         *slog.Logger
}

const (
	defaultWorkers        = 3
	defaultPollInterval   = 5 * time.Second
	defaultHandlerTimeout = 60 * time.Second

	completeAttempts   = 3
	completeRetryDelay = 200 * time.Millisecond
)

// Pool dispatches claimed jobs to type-specific handlers. It never decides
// activation itself; every completion is written back through the store and
// then handed to the aggregator.
type Pool struct {
	store          domain.JobStore
	handlers       map[domain.JobType]domain.Handler
	aggregator     Aggregator
	workers        int
	pollInterval   time.Duration
	handlerTimeout time.Duration
	log            *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pool over the given store and handler registry.
func New(store domain.JobStore, handlers map[domain.JobType]domain.Handler, aggregator Aggregator, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = defaultHandlerTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pool{
		store:          store,
		handlers:       handlers,
		aggregator:     aggregator,
		workers:        opts.Workers,
		pollInterval:   opts.PollInterval,
		handlerTimeout: opts.HandlerTimeout,
		log:            opts.Logger,
	}
}

// Start launches the workers. Call Stop for a graceful shutdown.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := range p.workers {
		workerID := fmt.Sprintf("worker-%d", i+1)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx, workerID)
		}()
	}
}

// Stop signals the workers and waits for in-flight jobs to finish. Running
// jobs are never cancelled mid-flight; their completions still land.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, workerID string) {
	for {
		job, err := p.store.ClaimNext(ctx, workerID)
		switch {
		case errors.Is(err, domain.ErrNoClaimableJob):
			if !p.sleep(ctx) {
				return
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			p.log.ErrorContext(ctx, "claiming job", "worker", workerID, "error", err)
			if !p.sleep(ctx) {
				return
			}
			continue
		}

		p.execute(ctx, workerID, job)

		if ctx.Err() != nil {
			return
		}
	}
}

// sleep waits one poll interval, returning false when the pool is stopping.
func (p *Pool) sleep(ctx context.Context) bool {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// execute runs one claimed job to a terminal status. Handler errors, timeouts
// and panics all become a failed outcome; nothing escapes to kill the worker,
// and no job is left running.
func (p *Pool) execute(ctx context.Context, workerID string, job domain.Job) {
	p.log.InfoContext(ctx, "job started",
		"worker", workerID, "job_id", job.ID, "type", string(job.Type),
		"order_id", job.OrderID, "attempt", job.Attempts)

	outcome := domain.SuccessOutcome()
	if handler, ok := p.handlers[job.Type]; ok {
		hctx, cancel := context.WithTimeout(ctx, p.handlerTimeout)
		if err := provisionSafely(hctx, handler, job.Intent); err != nil {
			outcome = domain.FailureOutcome(err.Error())
		}
		cancel()
	} else {
		outcome = domain.FailureOutcome(fmt.Sprintf("no handler registered for job type %q", job.Type))
	}

	// Completion and aggregation must land even when the pool is shutting
	// down, otherwise the job would be stuck running.
	finishCtx := context.WithoutCancel(ctx)

	if err := p.completeJob(finishCtx, job.ID, outcome); err != nil {
		p.log.ErrorContext(finishCtx, "writing job outcome",
			"worker", workerID, "job_id", job.ID, "error", err)
		return
	}

	if outcome.Success {
		p.log.InfoContext(finishCtx, "job succeeded", "worker", workerID, "job_id", job.ID)
	} else {
		p.log.WarnContext(finishCtx, "job failed",
			"worker", workerID, "job_id", job.ID, "error", outcome.Error)
	}

	if err := p.aggregator.JobCompleted(finishCtx, job.OrderID); err != nil {
		p.log.ErrorContext(finishCtx, "re-evaluating order",
			"worker", workerID, "order_id", job.OrderID, "error", err)
	}
}

// completeJob writes the terminal status, retrying a few times so a transient
// store error cannot leave the job stuck in running. Requeue is only legal
// from failed, so a lost completion has no operator recovery path.
func (p *Pool) completeJob(ctx context.Context, jobID string, outcome domain.Outcome) error {
	var err error
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		if err = p.store.Complete(ctx, jobID, outcome); err == nil {
			return nil
		}
		p.log.WarnContext(ctx, "retrying job outcome write",
			"job_id", jobID, "attempt", attempt, "error", err)
		time.Sleep(completeRetryDelay)
	}
	return err
}

// provisionSafely invokes the handler and converts a panic into an error so
// a misbehaving handler can never crash a worker.
func provisionSafely(ctx context.Context, handler domain.Handler, in domain.Intent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Provision(ctx, in)
}
