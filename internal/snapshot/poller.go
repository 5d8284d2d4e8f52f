package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/metrics"
)

// Job is one unit of refresh work the poller runs every cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// FuncJob adapts a function to the Job interface.
type FuncJob struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j FuncJob) Name() string {
	return j.JobName
}

func (j FuncJob) Run(ctx context.Context) error {
	return j.Fn(ctx)
}

// PollerParams configure the poller.
type PollerParams struct {
	Logger   *logger.Logger
	Metrics  *metrics.EngineMetrics
	Interval time.Duration
	Jobs     []Job
}

// Poller re-runs its jobs on a fixed cadence, and immediately when kicked
// by a push-invalidation signal. Failed cycles are logged and retried on
// the next tick; a read fault never surfaces to the guest.
type Poller struct {
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
	interval time.Duration
	jobs     []Job
	kick     chan struct{}
}

// NewPoller builds a poller.
func NewPoller(params PollerParams) (*Poller, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if len(params.Jobs) == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	return &Poller{
		logg:     params.Logger,
		metrics:  params.Metrics,
		interval: params.Interval,
		jobs:     params.Jobs,
		kick:     make(chan struct{}, 1),
	}, nil
}

// Kick requests an immediate cycle. Coalesces while one is already queued.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.runCycle(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logg.Info(ctx, "poller context canceled")
			return ctx.Err()
		case <-ticker.C:
			p.runCycle(ctx)
		case <-p.kick:
			p.runCycle(ctx)
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) {
	for _, job := range p.jobs {
		jobCtx := p.logg.WithField(ctx, "job", job.Name())
		start := time.Now()
		err := job.Run(jobCtx)
		duration := time.Since(start)
		p.metrics.ObservePoll(job.Name(), duration, err)
		if err != nil {
			jobCtx = p.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
			p.logg.Warn(p.logg.WithField(jobCtx, "error", err.Error()), "snapshot refresh failed, keeping previous value")
		}
	}
}
