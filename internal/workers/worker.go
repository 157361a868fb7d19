// Package workers drives analyses through the processing pipeline. Each
// stage claims analyses sitting at its target status by polling, processes
// them and advances the status, so a restart resumes exactly where the
// records say the pipeline stopped.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Nat1anWasTaken/paperly/internal/store"
)

// Stage is one step of the pipeline.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string
	// TargetStatus is the analysis status this stage claims.
	TargetStatus() store.Status
	// Process runs the stage for one analysis. Returning an error moves
	// the analysis to errored with the error text.
	Process(ctx context.Context, a *store.Analysis) error
}

// Runner polls for claimable analyses and dispatches them to stages. An
// analysis is processed by at most one goroutine at a time; the in-flight
// set is the only coordination, statuses in the database do the rest.
type Runner struct {
	stages   []Stage
	analyses *store.AnalysisStore
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
	cancel   context.CancelFunc
}

// NewRunner creates a runner over the given stages.
func NewRunner(analyses *store.AnalysisStore, stages []Stage, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Runner{
		stages:   stages,
		analyses: analyses,
		interval: interval,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// Start begins polling in the background until Stop is called or ctx is
// cancelled.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
	r.logger.Info("pipeline workers started", "stages", len(r.stages), "poll_interval", r.interval)
}

// Stop cancels the poll loop. In-flight stages see their context cancelled
// but are not waited for; their analyses stay at an in-progress status and
// are picked up again on the next start.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// poll runs one scan across all stages.
func (r *Runner) poll(ctx context.Context) {
	for _, stage := range r.stages {
		analyses, err := r.analyses.FindByStatus(ctx, stage.TargetStatus())
		if err != nil {
			r.logger.Error("failed to poll for analyses", "stage", stage.Name(), "error", err)
			continue
		}
		for _, a := range analyses {
			if !r.claim(a.ID) {
				continue
			}
			go r.run(ctx, stage, a)
		}
	}
}

func (r *Runner) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[id] {
		return false
	}
	r.inflight[id] = true
	return true
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, id)
}

func (r *Runner) run(ctx context.Context, stage Stage, a *store.Analysis) {
	defer r.release(a.ID)

	log := r.logger.With("stage", stage.Name(), "analysis_id", a.ID)
	log.Info("processing analysis")

	if err := stage.Process(ctx, a); err != nil {
		log.Error("stage failed", "error", err)
		if markErr := r.analyses.MarkErrored(ctx, a, err.Error()); markErr != nil {
			log.Error("failed to mark analysis errored", "error", markErr)
		}
		return
	}
	log.Info("stage complete", "status", a.Status)
}
