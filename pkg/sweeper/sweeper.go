// Package sweeper removes orphaned temporary artifacts from the storage
// root.
//
// The filesystem gateway cleans its temporary file whenever a save fails,
// but a crash or a killed process can still strand one. Stranded artifacts
// never show up in listings (the gateway filters them), so the sweeper's
// job is purely reclaiming disk space. It runs in the background and
// periodically deletes temp artifacts older than a configured age; the age
// threshold keeps it from racing in-flight uploads.
package sweeper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/picloudlabs/picloud/internal/logger"
	"github.com/picloudlabs/picloud/pkg/storage"
)

// Sweeper periodically scans a storage root for stale temporary artifacts.
//
// Thread Safety: Safe for concurrent use.
type Sweeper struct {
	root   string
	config Config
	stopCh chan struct{}
	doneCh chan struct{}
}

// Config contains configuration for the sweeper.
type Config struct {
	// Enabled controls whether sweeping is active (default: true)
	Enabled bool

	// Interval is how often to sweep (default: 1h)
	Interval time.Duration

	// MaxAge is how old a temporary artifact must be before it is
	// considered orphaned (default: 1h). Artifacts younger than this may
	// belong to an upload still in flight.
	MaxAge time.Duration

	// DryRun mode logs what would be removed without actually removing
	// (default: false)
	DryRun bool
}

// New creates a sweeper for the given storage root.
//
// The sweeper is initialized but not started. Call Start() to begin
// background sweeping.
func New(root string, config Config) *Sweeper {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.MaxAge == 0 {
		config.MaxAge = time.Hour
	}

	return &Sweeper{
		root:   root,
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins background sweeping. Safe to call when disabled (no-op).
func (s *Sweeper) Start() {
	if !s.config.Enabled {
		logger.Info("Temp artifact sweeper disabled")
		return
	}

	logger.Info("Starting temp artifact sweeper: interval=%s max_age=%s dry_run=%v",
		s.config.Interval, s.config.MaxAge, s.config.DryRun)

	go s.worker()
}

// Stop stops the sweeper and waits for it to finish.
//
// Returns an error if ctx expires before the worker completes an
// in-progress sweep. Safe to call when disabled.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	logger.Info("Stopping temp artifact sweeper...")
	close(s.stopCh)

	select {
	case <-s.doneCh:
		logger.Info("Temp artifact sweeper stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Temp artifact sweeper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate sweep, blocking until it completes or ctx
// is cancelled. Useful for startup cleanup and tests.
func (s *Sweeper) RunNow(ctx context.Context) (*Stats, error) {
	return s.sweep(ctx)
}

// worker is the background goroutine that runs periodic sweeps.
func (s *Sweeper) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			stats, err := s.sweep(ctx)
			cancel()

			if err != nil {
				logger.Error("Temp artifact sweep failed: %v", err)
			} else if stats.OrphanedCount > 0 {
				logger.Info("Temp artifact sweep completed: %s", stats.Summary())
			}

		case <-s.stopCh:
			return
		}
	}
}

// sweep performs a single pass over the storage root.
func (s *Sweeper) sweep(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	cutoff := stats.StartTime.Add(-s.config.MaxAge)

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return stats, fmt.Errorf("failed to read storage root: %w", err)
	}

	for i, entry := range entries {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				stats.EndTime = time.Now()
				return stats, err
			}
		}

		if entry.IsDir() || !storage.IsTempArtifact(entry.Name()) {
			continue
		}
		stats.ScannedCount++

		info, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info: nothing to clean.
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		stats.OrphanedCount++

		if s.config.DryRun {
			logger.Info("Sweep (dry run): would remove %s", entry.Name())
			continue
		}

		if err := os.Remove(filepath.Join(s.root, entry.Name())); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			logger.Warn("Sweep: failed to remove %s: %v", entry.Name(), err)
			stats.FailedCount++
			continue
		}
		stats.RemovedCount++
		logger.Debug("Sweep: removed orphaned temp artifact %s", entry.Name())
	}

	stats.EndTime = time.Now()
	return stats, nil
}

// Stats contains statistics from a single sweep.
type Stats struct {
	StartTime     time.Time // When the sweep started
	EndTime       time.Time // When the sweep ended
	ScannedCount  uint64    // Temp artifacts examined
	OrphanedCount uint64    // Temp artifacts older than MaxAge
	RemovedCount  uint64    // Orphaned artifacts successfully removed
	FailedCount   uint64    // Orphaned artifacts that failed to remove
}

// Duration returns the total sweep duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the sweep.
func (s *Stats) Summary() string {
	return fmt.Sprintf("scanned=%d orphaned=%d removed=%d failed=%d duration=%s",
		s.ScannedCount, s.OrphanedCount, s.RemovedCount, s.FailedCount, s.Duration())
}
