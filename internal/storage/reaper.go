package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mahirjain10/quicksvg/internal/observability"
)

// Reaper bounds the lifetime of uploads left behind by failed conversions.
// Only regular files directly inside the upload directory are considered, so a
// public output directory nested below it is never touched.
type Reaper struct {
	dir    string
	ttl    time.Duration
	logger *observability.Logger
}

func NewReaper(dir string, ttl time.Duration, logger *observability.Logger) *Reaper {
	return &Reaper{dir: dir, ttl: ttl, logger: logger.WithComponent("reaper")}
}

// Sweep deletes every file whose modification time is older than now-ttl and
// returns how many were removed.
func (r *Reaper) Sweep(now time.Time) (int, error) {
	if r.ttl <= 0 {
		return 0, fmt.Errorf("non-positive retention ttl %s", r.ttl)
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read upload dir: %w", err)
	}

	cutoff := now.Add(-r.ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", path).Msg("failed to reap retained upload")
			continue
		}
		removed++
	}

	if removed > 0 {
		r.logger.Info().Int("removed", removed).Dur("ttl", r.ttl).Msg("reaped retained uploads")
	}
	return removed, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.ttl <= 0 {
		r.logger.Error().Dur("interval", interval).Dur("ttl", r.ttl).Msg("reaper disabled: interval and ttl must be positive")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug().Msg("reaper stopped")
			return
		case now := <-ticker.C:
			if _, err := r.Sweep(now); err != nil {
				r.logger.Error().Err(err).Msg("reaper sweep failed")
			}
		}
	}
}
