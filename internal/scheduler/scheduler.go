// Package scheduler implements the download admission stage: it promotes
// trivially-complete messages, reclaims stuck downloads, and dispatches
// fetches for waiting messages under the concurrency cap.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zulandar/boxcar/internal/cache"
	"github.com/zulandar/boxcar/internal/config"
	"github.com/zulandar/boxcar/internal/fetch"
	"github.com/zulandar/boxcar/internal/metrics"
	"github.com/zulandar/boxcar/internal/models"
	"github.com/zulandar/boxcar/internal/store"
)

// lockPollInterval is how often the scheduler re-checks the ingest lock
// while it is held.
const lockPollInterval = 250 * time.Millisecond

// Upstream is the slice of the Bot API client the scheduler needs.
type Upstream interface {
	Healthy(ctx context.Context) bool
	FileInfoURL(fileID string) string
}

// Scheduler drives one download-dispatch cycle per Run call.
type Scheduler struct {
	store       *store.Store
	lock        cache.IngestLock
	upstream    Upstream
	launcher    fetch.Launcher
	cfg         config.DownloadConfig
	artifactDir string
}

// New assembles a Scheduler. All collaborators are required.
func New(st *store.Store, lock cache.IngestLock, upstream Upstream, launcher fetch.Launcher, cfg config.DownloadConfig, artifactDir string) *Scheduler {
	return &Scheduler{
		store:       st,
		lock:        lock,
		upstream:    upstream,
		launcher:    launcher,
		cfg:         cfg,
		artifactDir: artifactDir,
	}
}

// Run executes one scheduling cycle. Nothing here is fatal: store and
// dispatch errors are returned for logging and the next cycle retries.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.upstream.Healthy(ctx) {
		log.Printf("scheduler: upstream fetch service unreachable, skipping cycle")
		return nil
	}

	// Wait out the ingest cooldown. The reconciler sets it after a bad
	// fetch; dispatching into a failing upstream just burns attempts.
	if err := s.waitForLock(ctx); err != nil {
		return err
	}

	promoted, err := s.store.PromoteEmptyFileID()
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if promoted > 0 {
		metrics.MessagesPromoted.Add(float64(promoted))
		log.Printf("scheduler: promoted %d media-less messages to moved", promoted)
	}

	now := time.Now().Unix()
	reclaimed, err := s.store.ReclaimStuck(now - int64(s.cfg.Timeout().Seconds()))
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if reclaimed > 0 {
		metrics.DownloadsReclaimed.Add(float64(reclaimed))
		log.Printf("scheduler: reclaimed %d stuck downloads", reclaimed)
	}

	inFlight, err := s.store.CountByStatus(models.StatusDownloading)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	waiting, err := s.store.CountByStatus(models.StatusWaiting)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	metrics.Downloading.Set(float64(inFlight))
	metrics.WaitingBacklog.Set(float64(waiting))
	log.Printf("scheduler: %d downloading, %d waiting", inFlight, waiting)

	available := s.cfg.MaxConcurrent - int(inFlight)
	if available <= 0 {
		return nil
	}

	batch, err := s.store.SelectWaiting(available, s.cfg.MaxFileSize)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	ids := make([]int64, len(batch))
	for i, msg := range batch {
		ids[i] = msg.ID
	}
	if err := s.store.MarkDownloading(ids, now); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	// A crash or spawn failure from here on leaves DOWNLOADING orphans;
	// the reclaim pass above is their recovery path.
	for _, msg := range batch {
		url := s.upstream.FileInfoURL(msg.FileID)
		artifact := fetch.ArtifactName(s.artifactDir, msg.ID)
		if err := s.launcher.Dispatch(ctx, url, artifact, s.cfg.Timeout()); err != nil {
			log.Printf("scheduler: dispatch message %d: %v", msg.ID, err)
			continue
		}
		metrics.DownloadsDispatched.Inc()
	}
	return nil
}

// waitForLock busy-polls the ingest lock until it clears or ctx ends.
func (s *Scheduler) waitForLock(ctx context.Context) error {
	for {
		held, err := s.lock.Held(ctx)
		if err != nil {
			return fmt.Errorf("scheduler: check ingest lock: %w", err)
		}
		if !held {
			return nil
		}
		log.Printf("scheduler: ingest lock held, waiting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
