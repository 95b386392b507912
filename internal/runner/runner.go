// Package runner schedules the pipeline stages as non-overlapping
// periodic jobs.
package runner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Stage is one pipeline loop body. Run executes a single bounded cycle.
type Stage interface {
	Run(ctx context.Context) error
}

// Runner drives registered stages on fixed delays. Each stage never
// overlaps itself; different stages run concurrently.
type Runner struct {
	cron *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

// New returns a Runner with overlap suppression per job.
func New() *Runner {
	r := &Runner{ctx: context.Background()}
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	return r
}

// Add registers a stage to run every interval. Stage errors are logged
// under name; the schedule keeps going.
func (r *Runner) Add(name string, interval time.Duration, stage Stage) error {
	if interval < time.Second {
		return fmt.Errorf("runner: add %s: interval %s below 1s minimum", name, interval)
	}
	spec := fmt.Sprintf("@every %s", interval)
	_, err := r.cron.AddFunc(spec, func() {
		r.mu.Lock()
		ctx := r.ctx
		r.mu.Unlock()
		if err := stage.Run(ctx); err != nil {
			log.Printf("runner: %s: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("runner: add %s: %w", name, err)
	}
	return nil
}

// Start begins scheduling. ctx is handed to every stage invocation;
// cancel it before Stop to interrupt long-running cycles.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	r.cron.Start()
}

// Stop halts scheduling and returns once in-flight cycles finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}
