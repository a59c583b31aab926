package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

// MemoSnapshotRepository keeps the last snapshot for ttl and collapses concurrent
// loads into one upstream fetch.
type MemoSnapshotRepository struct {
	inner SnapshotRepository
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	last  *domain.Snapshot
	until time.Time
}

func NewMemoSnapshotRepository(inner SnapshotRepository, ttl time.Duration) *MemoSnapshotRepository {
	return &MemoSnapshotRepository{inner: inner, ttl: ttl, now: time.Now}
}

func (m *MemoSnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.RLock()
	if m.last != nil && m.now().Before(m.until) {
		snap := m.last
		m.mu.RUnlock()
		return snap, nil
	}
	m.mu.RUnlock()

	// The shared load outlives any single caller; each caller only stops waiting
	// when its own context ends.
	ch := m.group.DoChan("snapshot", func() (interface{}, error) {
		snap, err := m.inner.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		// Partial snapshots are served but not kept, so the next call retries.
		if !snap.Partial() && m.ttl > 0 {
			m.mu.Lock()
			m.last = snap
			m.until = m.now().Add(m.ttl)
			m.mu.Unlock()
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	}
}

// Forget drops the held snapshot.
func (m *MemoSnapshotRepository) Forget() {
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
}
