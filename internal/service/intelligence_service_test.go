package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/intelligence"
)

type stubRepo struct {
	snap    *domain.Snapshot
	err     error
	loads   int
	forgets int
}

func (r *stubRepo) Load(ctx context.Context) (*domain.Snapshot, error) {
	r.loads++
	return r.snap, r.err
}

func (r *stubRepo) Forget() { r.forgets++ }

type memoryCache struct {
	entries map[string][]byte
	gets    int
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.gets++
	payload, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(payload, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = payload
	return nil
}

func (m *memoryCache) InvalidateAll(ctx context.Context) error {
	m.entries = map[string][]byte{}
	return nil
}

var asOf = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return asOf.AddDate(0, 0, offset)
}

func fixtureSnapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		FetchedAt: asOf,
		Products: []domain.Product{
			{ID: "P1", Name: "Bolt", Stock: 0, MinStock: 10, Price: decimal.NewFromInt(2), Location: "A-01"},
			{ID: "P2", Name: "Nut", Stock: 120, MinStock: 5, Price: decimal.NewFromInt(1), Location: "C-04"},
			{ID: "NEG", Name: "Washer", Stock: -3, Location: "B-02"},
		},
		Transactions: []domain.Transaction{
			{Date: day(-20), SKU: "P1", Qty: 50, Type: domain.TransactionIn, BatchID: "B1"},
			{Date: day(-10), SKU: "P1", Qty: 50, Type: domain.TransactionOut},
			{Date: day(-15), SKU: "P2", Qty: 150, Type: domain.TransactionIn, BatchID: "B2"},
			{Date: day(-5), SKU: "P2", Qty: 30, Type: domain.TransactionOut},
			{Date: day(-2), SKU: "NEG", Qty: 3, Type: domain.TransactionOut},
		},
		Damages:     []domain.DamageRecord{},
		CycleCounts: []domain.CycleCount{},
	}
	snap.ID = snap.ComputeID()
	return snap
}

func newTestService(repo *stubRepo, c *memoryCache) *IntelligenceService {
	s := NewIntelligenceService(repo, c, intelligence.DefaultParams(), nil)
	s.now = func() time.Time { return asOf }
	return s
}

func TestReorder_UsesCacheOnSecondCall(t *testing.T) {
	repo := &stubRepo{snap: fixtureSnapshot()}
	c := newMemoryCache()
	svc := newTestService(repo, c)

	first, err := svc.Reorder(context.Background(), Request{})
	require.NoError(t, err)
	require.NotEmpty(t, first.Suggestions)
	assert.Equal(t, "P1", first.Suggestions[0].ID)
	assert.Equal(t, "Critical: Out of Stock", first.Suggestions[0].Reason)
	assert.Equal(t, repo.snap.ID, first.SnapshotID)

	second, err := svc.Reorder(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.hits)
	assert.Equal(t, first.Suggestions[0].SuggestedQty, second.Suggestions[0].SuggestedQty)

	_, err = svc.Reorder(context.Background(), Request{Params: intelligence.Params{LeadTimeDays: 14}})
	require.NoError(t, err)
	assert.Equal(t, 1, c.hits, "different params must not share a cache entry")
}

func TestReorder_PartialSnapshotNotCached(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Errors = []string{"Damages: timeout"}
	c := newMemoryCache()
	svc := newTestService(&stubRepo{snap: snap}, c)

	report, err := svc.Reorder(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, report.Partial)
	assert.Equal(t, []string{"Damages: timeout"}, report.Warnings)
	assert.Empty(t, c.entries)
}

func TestPrepare_RejectsInvalidParams(t *testing.T) {
	repo := &stubRepo{snap: fixtureSnapshot()}
	svc := newTestService(repo, newMemoryCache())

	_, err := svc.Slotting(context.Background(), Request{Params: intelligence.Params{ClassABoundaryPercent: 80}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, repo.loads)
}

func TestPrepare_LoadFailure(t *testing.T) {
	svc := newTestService(&stubRepo{err: context.DeadlineExceeded}, newMemoryCache())
	_, err := svc.Aging(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAllocation(t *testing.T) {
	svc := newTestService(&stubRepo{snap: fixtureSnapshot()}, newMemoryCache())
	ctx := context.Background()

	report, err := svc.Allocation(ctx, Request{}, "P2", 40)
	require.NoError(t, err)
	assert.Equal(t, 40, intelligence.TotalAllocated(report.Preview.Allocations))
	assert.True(t, report.Preview.Fulfilled)

	_, err = svc.Allocation(ctx, Request{}, "", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Allocation(ctx, Request{}, "P2", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Allocation(ctx, Request{}, "NOPE", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnomalies(t *testing.T) {
	svc := newTestService(&stubRepo{snap: fixtureSnapshot()}, newMemoryCache())

	report, err := svc.Anomalies(context.Background(), Request{})
	require.NoError(t, err)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, intelligence.SeverityCritical, report.Issues[0].Type)
	assert.Equal(t, "NEG", report.Issues[0].EntityID)
}

func TestDashboard(t *testing.T) {
	svc := newTestService(&stubRepo{snap: fixtureSnapshot()}, newMemoryCache())

	d, err := svc.Dashboard(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, d.Errors)
	assert.Equal(t, 3, d.Summary.Products)
	assert.Equal(t, len(d.Reorder), d.Summary.ReorderCount)
	assert.Equal(t, 1, d.Summary.CriticalIssues)
	assert.Equal(t, "120", d.Summary.TotalStockValue.String())
	require.NotNil(t, d.Slotting)
	assert.Len(t, d.Slotting.Insights, 3)
	assert.Len(t, d.Aging, 3)
}

func TestDashboard_IsolatesPanickingComponent(t *testing.T) {
	svc := newTestService(&stubRepo{snap: fixtureSnapshot()}, newMemoryCache())
	svc.parts = append([]dashboardPart{{
		name: "broken",
		run: func(*domain.Snapshot, intelligence.Params, time.Time, *Dashboard) {
			panic(errors.New("index out of range"))
		},
	}}, svc.parts...)

	d, err := svc.Dashboard(context.Background(), Request{})
	require.NoError(t, err)
	require.Contains(t, d.Errors, "broken")
	assert.Contains(t, d.Errors["broken"], "index out of range")
	assert.NotEmpty(t, d.Reorder)
	assert.NotNil(t, d.Slotting)
}

func TestInvalidateCache(t *testing.T) {
	repo := &stubRepo{snap: fixtureSnapshot()}
	c := newMemoryCache()
	svc := newTestService(repo, c)

	_, err := svc.Aging(context.Background(), Request{})
	require.NoError(t, err)
	require.NotEmpty(t, c.entries)

	require.NoError(t, svc.InvalidateCache(context.Background()))
	assert.Empty(t, c.entries)
	assert.Equal(t, 1, repo.forgets)
}

func TestMergeParams(t *testing.T) {
	base := intelligence.DefaultParams()
	p := mergeParams(base, intelligence.Params{TargetDays: 45, AllocationMethod: intelligence.FEFO})
	assert.Equal(t, 45, p.TargetDays)
	assert.Equal(t, intelligence.FEFO, p.AllocationMethod)
	assert.Equal(t, base.LeadTimeDays, p.LeadTimeDays)
}

func mismatchIssues(report *AnomalyReport) []intelligence.AnomalyIssue {
	var out []intelligence.AnomalyIssue
	for _, issue := range report.Issues {
		if issue.Title == "Stock Mismatch" {
			out = append(out, issue)
		}
	}
	return out
}

func TestAnomalies_ZeroToleranceOverridesConfiguredDefault(t *testing.T) {
	snap := &domain.Snapshot{
		Products: []domain.Product{{ID: "W", Name: "Widget", Stock: 3, Location: "A-01"}},
	}
	snap.ID = snap.ComputeID()

	defaults := intelligence.DefaultParams()
	defaults.ReconcileTolerance = 5
	svc := NewIntelligenceService(&stubRepo{snap: snap}, newMemoryCache(), defaults, nil)
	svc.now = func() time.Time { return asOf }
	ctx := context.Background()

	lenient, err := svc.Anomalies(ctx, Request{})
	require.NoError(t, err)
	assert.Empty(t, mismatchIssues(lenient))

	strict := 0
	report, err := svc.Anomalies(ctx, Request{ReconcileTolerance: &strict})
	require.NoError(t, err)
	issues := mismatchIssues(report)
	require.Len(t, issues, 1)
	assert.Equal(t, "+3", issues[0].Value)
	assert.Equal(t, intelligence.ActionFixStock, issues[0].Action)
}

func TestDashboardOf_UsesGivenSnapshot(t *testing.T) {
	repo := &stubRepo{snap: &domain.Snapshot{ID: "newer"}}
	svc := newTestService(repo, newMemoryCache())
	snap := fixtureSnapshot()

	d, err := svc.DashboardOf(snap, Request{})
	require.NoError(t, err)
	assert.Equal(t, snap.ID, d.SnapshotID)
	assert.Equal(t, 3, d.Summary.Products)
	assert.Zero(t, repo.loads)

	_, err = svc.DashboardOf(nil, Request{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMergeParams_EngineThresholds(t *testing.T) {
	base := intelligence.DefaultParams()
	p := mergeParams(base, intelligence.Params{
		UsageWindowDays:          14,
		VelocityWindowDays:       60,
		TrendSlopeThreshold:      0.5,
		MinConfidence:            70,
		VarianceThresholdPercent: 25,
		VarianceMinSystemQty:     2,
		FutureToleranceDays:      1,
		SlowMovingDays:           10,
		DeadStockDays:            40,
	})
	assert.Equal(t, 14, p.UsageWindowDays)
	assert.Equal(t, 60, p.VelocityWindowDays)
	assert.InDelta(t, 0.5, p.TrendSlopeThreshold, 1e-9)
	assert.InDelta(t, 70, p.MinConfidence, 1e-9)
	assert.InDelta(t, 25, p.VarianceThresholdPercent, 1e-9)
	assert.Equal(t, 2, p.VarianceMinSystemQty)
	assert.Equal(t, 1, p.FutureToleranceDays)
	assert.Equal(t, 10, p.SlowMovingDays)
	assert.Equal(t, 40, p.DeadStockDays)
	assert.Equal(t, base.TargetDays, p.TargetDays)
}
