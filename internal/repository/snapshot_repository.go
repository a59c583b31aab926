package repository

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/sheets"
)

type SnapshotRepository interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// SnapshotLoader reads the four tabs concurrently and normalizes them together.
// A tab that fails to load becomes an empty collection and an entry in
// Snapshot.Errors; only cancellation of the caller's context is returned as an error.
// Timeout bounds the upstream fetch; hitting it counts as a failed fetch.
type SnapshotLoader struct {
	Timeout time.Duration

	source     sheets.Source
	tabs       sheets.Tabs
	normalizer *sheets.Normalizer
	now        func() time.Time
}

func NewSnapshotLoader(source sheets.Source, tabs sheets.Tabs, normalizer *sheets.Normalizer) *SnapshotLoader {
	if normalizer == nil {
		normalizer = sheets.NewNormalizer()
	}
	return &SnapshotLoader{
		source:     source,
		tabs:       tabs,
		normalizer: normalizer,
		now:        time.Now,
	}
}

func (l *SnapshotLoader) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{
		FetchedAt:    l.now().UTC(),
		Products:     []domain.Product{},
		Transactions: []domain.Transaction{},
		Damages:      []domain.DamageRecord{},
		CycleCounts:  []domain.CycleCount{},
	}

	fetchCtx := ctx
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	reader, err := l.source.Open(fetchCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn().Err(err).Msg("snapshot source unavailable, serving empty snapshot")
		snap.Errors = append(snap.Errors, fmt.Sprintf("source: %v", err))
		snap.ID = snap.ComputeID()
		return snap, nil
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	names := []string{l.tabs.Products, l.tabs.Transactions, l.tabs.Damages, l.tabs.CycleCounts}
	tables := make([]sheets.Table, len(names))
	failures := make([]error, len(names))

	g, gctx := errgroup.WithContext(fetchCtx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			t, err := reader.ReadTable(gctx, name)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				tables[i] = sheets.Table{Name: name}
				return nil
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, err := range failures {
		if err == nil {
			continue
		}
		log.Warn().Err(err).Str("tab", names[i]).Msg("tab failed to load, using empty collection")
		snap.Errors = append(snap.Errors, fmt.Sprintf("%s: %v", names[i], err))
	}

	res := l.normalizer.Normalize(tables[0], tables[1], tables[2], tables[3])
	for tab, skipped := range res.Skipped {
		if skipped > 0 {
			log.Warn().Str("tab", tab).Int("rows", skipped).Msg("skipped malformed rows")
		}
	}

	snap.Products = res.Products
	snap.Transactions = res.Transactions
	snap.Damages = res.Damages
	snap.CycleCounts = res.CycleCounts
	snap.ID = snap.ComputeID()

	log.Debug().
		Str("snapshot", snap.ID).
		Int("products", len(snap.Products)).
		Int("transactions", len(snap.Transactions)).
		Int("damages", len(snap.Damages)).
		Int("cycle_counts", len(snap.CycleCounts)).
		Msg("snapshot loaded")

	return snap, nil
}
