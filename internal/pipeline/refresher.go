// Package pipeline runs the background refresh loop that notices when the
// spreadsheet data changes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/repository"
)

// Hook runs once for every snapshot whose id differs from the previous one.
type Hook struct {
	Name string
	Run  func(ctx context.Context, snap *domain.Snapshot) error
}

// Status describes the last refresh.
type Status struct {
	SnapshotID  string    `json:"snapshot_id"`
	LastRun     time.Time `json:"last_run"`
	LastChange  time.Time `json:"last_change"`
	Runs        int       `json:"runs"`
	Changes     int       `json:"changes"`
	LastFailure string    `json:"last_failure,omitempty"`
}

// Refresher reloads the snapshot on an interval and fires hooks on change.
type Refresher struct {
	repo     repository.SnapshotRepository
	interval time.Duration
	hooks    []Hook
	now      func() time.Time

	mu     sync.Mutex
	status Status
}

func NewRefresher(repo repository.SnapshotRepository, interval time.Duration, hooks ...Hook) *Refresher {
	return &Refresher{
		repo:     repo,
		interval: interval,
		hooks:    hooks,
		now:      time.Now,
	}
}

// RunOnce loads a fresh snapshot and reports whether its id changed. The first
// successful load only records the id.
func (r *Refresher) RunOnce(ctx context.Context) (bool, error) {
	if f, ok := r.repo.(interface{ Forget() }); ok {
		f.Forget()
	}

	snap, err := r.repo.Load(ctx)

	r.mu.Lock()
	r.status.Runs++
	r.status.LastRun = r.now()
	if err != nil {
		r.status.LastFailure = err.Error()
		r.mu.Unlock()
		return false, fmt.Errorf("refresh snapshot: %w", err)
	}
	// Partial loads would flip the id back and forth while a tab is down.
	if snap.Partial() {
		r.status.LastFailure = fmt.Sprintf("partial snapshot: %v", snap.Errors)
		r.mu.Unlock()
		return false, nil
	}
	previous := r.status.SnapshotID
	r.status.SnapshotID = snap.ID
	r.status.LastFailure = ""
	changed := previous != "" && previous != snap.ID
	if changed {
		r.status.Changes++
		r.status.LastChange = r.status.LastRun
	}
	r.mu.Unlock()

	if !changed {
		return false, nil
	}

	log.Info().Str("previous", previous).Str("snapshot", snap.ID).Msg("spreadsheet data changed")
	var errs []error
	for _, hook := range r.hooks {
		if err := hook.Run(ctx, snap); err != nil {
			log.Warn().Err(err).Str("hook", hook.Name).Msg("refresh hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
		}
	}
	return true, errors.Join(errs...)
}

// Run refreshes until ctx is done. A non-positive interval disables the loop.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if _, err := r.RunOnce(ctx); err != nil {
		log.Warn().Err(err).Msg("initial snapshot refresh failed")
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("snapshot refresh failed")
			}
		}
	}
}

// Status returns a copy of the last refresh state.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
