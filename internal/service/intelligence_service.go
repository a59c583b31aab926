package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/cache"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/intelligence"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/repository"
)

// Request carries the per-call overrides. A zero AsOf means now; zero Params fields
// fall back to the service defaults. A nil ReconcileTolerance keeps the default;
// zero is a valid override.
type Request struct {
	Params             intelligence.Params
	ReconcileTolerance *int
	AsOf               time.Time
}

// ReportMeta identifies the data a report was computed from.
type ReportMeta struct {
	SnapshotID string    `json:"snapshot_id"`
	FetchedAt  time.Time `json:"fetched_at"`
	AsOf       time.Time `json:"as_of"`
	Partial    bool      `json:"partial"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Meta lets callers holding any report read its provenance.
func (m ReportMeta) Meta() ReportMeta { return m }

type ReorderReport struct {
	ReportMeta
	Suggestions []intelligence.ReorderSuggestion `json:"suggestions"`
}

type AllocationReport struct {
	ReportMeta
	Preview intelligence.AllocationPreview `json:"preview"`
}

type AgingReport struct {
	ReportMeta
	Entries []intelligence.AgingEntry `json:"entries"`
}

type SlottingReport struct {
	ReportMeta
	intelligence.SlottingReport
}

type AnomalyReport struct {
	ReportMeta
	Issues []intelligence.AnomalyIssue `json:"issues"`
}

// DashboardSummary holds the headline counts.
type DashboardSummary struct {
	Products        int             `json:"products"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
	ReorderCount    int             `json:"reorder_count"`
	CriticalIssues  int             `json:"critical_issues"`
	WarningIssues   int             `json:"warning_issues"`
	SlowMoving      int             `json:"slow_moving"`
	DeadStock       int             `json:"dead_stock"`
}

// Dashboard bundles every report. A component that fails leaves its section empty
// and records the failure in Errors.
type Dashboard struct {
	ReportMeta
	Summary   DashboardSummary                 `json:"summary"`
	Reorder   []intelligence.ReorderSuggestion `json:"reorder"`
	Aging     []intelligence.AgingEntry        `json:"aging"`
	Slotting  *intelligence.SlottingReport     `json:"slotting"`
	Anomalies []intelligence.AnomalyIssue      `json:"anomalies"`
	Errors    map[string]string                `json:"errors,omitempty"`
}

type dashboardPart struct {
	name string
	run  func(snap *domain.Snapshot, p intelligence.Params, asOf time.Time, d *Dashboard)
}

type IntelligenceService struct {
	repo     repository.SnapshotRepository
	cache    cache.ReportCache
	defaults intelligence.Params
	zones    intelligence.ZoneOrder
	now      func() time.Time
	parts    []dashboardPart
}

func NewIntelligenceService(repo repository.SnapshotRepository, cacheImpl cache.ReportCache, defaults intelligence.Params, zones intelligence.ZoneOrder) *IntelligenceService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if zones == nil {
		zones = intelligence.AlphabeticalZones
	}
	s := &IntelligenceService{
		repo:     repo,
		cache:    cacheImpl,
		defaults: defaults.WithDefaults(),
		zones:    zones,
		now:      time.Now,
	}
	s.parts = s.defaultDashboardParts()
	return s
}

// Defaults returns the parameters used when a request leaves fields unset.
func (s *IntelligenceService) Defaults() intelligence.Params {
	return s.defaults
}

func (s *IntelligenceService) Reorder(ctx context.Context, req Request) (*ReorderReport, error) {
	snap, p, asOf, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, s, "reorder", snap, p, asOf, nil, func() *ReorderReport {
		return &ReorderReport{
			ReportMeta:  meta(snap, asOf),
			Suggestions: intelligence.SuggestReordersFromLog(snap.Products, snap.Transactions, asOf, p),
		}
	}), nil
}

func (s *IntelligenceService) Allocation(ctx context.Context, req Request, sku string, qty int) (*AllocationReport, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku is required", domain.ErrInvalidInput)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: qty must be positive", domain.ErrInvalidInput)
	}

	snap, p, asOf, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if !knownSKU(snap, sku) {
		return nil, fmt.Errorf("sku %q: %w", sku, domain.ErrNotFound)
	}

	extra := []string{"sku=" + sku, fmt.Sprintf("qty=%d", qty)}
	return cachedReport(ctx, s, "allocation", snap, p, asOf, extra, func() *AllocationReport {
		return &AllocationReport{
			ReportMeta: meta(snap, asOf),
			Preview:    intelligence.PreviewAllocation(sku, qty, snap.Products, snap.Transactions, asOf, p),
		}
	}), nil
}

func (s *IntelligenceService) Aging(ctx context.Context, req Request) (*AgingReport, error) {
	snap, p, asOf, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, s, "aging", snap, p, asOf, nil, func() *AgingReport {
		return &AgingReport{
			ReportMeta: meta(snap, asOf),
			Entries:    intelligence.AgingReport(snap.Products, snap.Transactions, asOf, p),
		}
	}), nil
}

func (s *IntelligenceService) Slotting(ctx context.Context, req Request) (*SlottingReport, error) {
	snap, p, asOf, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, s, "slotting", snap, p, asOf, nil, func() *SlottingReport {
		return &SlottingReport{
			ReportMeta:     meta(snap, asOf),
			SlottingReport: intelligence.ClassifyVelocity(snap.Products, snap.Transactions, asOf, p, s.zones),
		}
	}), nil
}

func (s *IntelligenceService) Anomalies(ctx context.Context, req Request) (*AnomalyReport, error) {
	snap, p, asOf, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, s, "anomalies", snap, p, asOf, nil, func() *AnomalyReport {
		return &AnomalyReport{
			ReportMeta: meta(snap, asOf),
			Issues:     intelligence.DetectAnomalies(anomalyInput(snap), asOf, p),
		}
	}), nil
}

// Dashboard renders every component. Dashboards are not cached as a whole since
// each part is cheap once the snapshot is loaded.
func (s *IntelligenceService) Dashboard(ctx context.Context, req Request) (*Dashboard, error) {
	snap, p, asOf, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.renderDashboard(snap, p, asOf), nil
}

// DashboardOf renders the dashboard for a snapshot the caller already holds, without
// touching the repository or the report cache.
func (s *IntelligenceService) DashboardOf(snap *domain.Snapshot, req Request) (*Dashboard, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is required", domain.ErrInvalidInput)
	}
	p, asOf, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	return s.renderDashboard(snap, p, asOf), nil
}

func (s *IntelligenceService) renderDashboard(snap *domain.Snapshot, p intelligence.Params, asOf time.Time) *Dashboard {
	d := &Dashboard{
		ReportMeta: meta(snap, asOf),
		Reorder:    []intelligence.ReorderSuggestion{},
		Aging:      []intelligence.AgingEntry{},
		Anomalies:  []intelligence.AnomalyIssue{},
	}
	d.Summary.Products = len(snap.Products)
	d.Summary.TotalStockValue = decimal.Zero

	for _, part := range s.parts {
		if err := runIsolated(part, snap, p, asOf, d); err != nil {
			log.Error().Err(err).Str("component", part.name).Str("snapshot", snap.ID).Msg("dashboard component failed")
			if d.Errors == nil {
				d.Errors = make(map[string]string)
			}
			d.Errors[part.name] = err.Error()
		}
	}
	return d
}

// InvalidateCache drops every cached report and any held snapshot.
func (s *IntelligenceService) InvalidateCache(ctx context.Context) error {
	if f, ok := s.repo.(interface{ Forget() }); ok {
		f.Forget()
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("invalidate report cache: %w", err)
	}
	return nil
}

func (s *IntelligenceService) defaultDashboardParts() []dashboardPart {
	return []dashboardPart{
		{name: "reorder", run: func(snap *domain.Snapshot, p intelligence.Params, asOf time.Time, d *Dashboard) {
			d.Reorder = intelligence.SuggestReordersFromLog(snap.Products, snap.Transactions, asOf, p)
			d.Summary.ReorderCount = len(d.Reorder)
		}},
		{name: "aging", run: func(snap *domain.Snapshot, p intelligence.Params, asOf time.Time, d *Dashboard) {
			d.Aging = intelligence.AgingReport(snap.Products, snap.Transactions, asOf, p)
			total := decimal.Zero
			for _, e := range d.Aging {
				total = total.Add(e.StockValue)
				switch e.MovementStatus {
				case intelligence.MovementSlow:
					d.Summary.SlowMoving++
				case intelligence.MovementDead:
					d.Summary.DeadStock++
				}
			}
			d.Summary.TotalStockValue = total
		}},
		{name: "slotting", run: func(snap *domain.Snapshot, p intelligence.Params, asOf time.Time, d *Dashboard) {
			report := intelligence.ClassifyVelocity(snap.Products, snap.Transactions, asOf, p, s.zones)
			d.Slotting = &report
		}},
		{name: "anomalies", run: func(snap *domain.Snapshot, p intelligence.Params, asOf time.Time, d *Dashboard) {
			d.Anomalies = intelligence.DetectAnomalies(anomalyInput(snap), asOf, p)
			for _, issue := range d.Anomalies {
				switch issue.Type {
				case intelligence.SeverityCritical:
					d.Summary.CriticalIssues++
				case intelligence.SeverityWarning:
					d.Summary.WarningIssues++
				}
			}
		}},
	}
}

func runIsolated(part dashboardPart, snap *domain.Snapshot, p intelligence.Params, asOf time.Time, d *Dashboard) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", part.name, r)
		}
	}()
	part.run(snap, p, asOf, d)
	return nil
}

// prepare loads the snapshot and resolves parameters and the reference time.
func (s *IntelligenceService) prepare(ctx context.Context, req Request) (*domain.Snapshot, intelligence.Params, time.Time, error) {
	p, asOf, err := s.resolve(req)
	if err != nil {
		return nil, p, asOf, err
	}

	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, p, asOf, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, p, asOf, nil
}

// resolve merges the request overrides into the defaults and fixes the reference time.
func (s *IntelligenceService) resolve(req Request) (intelligence.Params, time.Time, error) {
	p := mergeParams(s.defaults, req.Params)
	if req.ReconcileTolerance != nil {
		p.ReconcileTolerance = *req.ReconcileTolerance
	}
	if err := p.Validate(); err != nil {
		return p, time.Time{}, err
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	return p, asOf.UTC().Truncate(time.Minute), nil
}

func cachedReport[T any](ctx context.Context, s *IntelligenceService, name string, snap *domain.Snapshot, p intelligence.Params, asOf time.Time, extra []string, build func() *T) *T {
	parts := append([]string{
		fmt.Sprintf("params=%+v", p),
		"as_of=" + asOf.Format(time.RFC3339),
	}, extra...)
	key := cache.ReportKey(name, snap.ID, parts...)

	var cached T
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached
	} else if err != nil {
		log.Warn().Err(err).Str("report", name).Msg("intelligence: cache get failed")
	}

	report := build()

	// Partial snapshots are never cached so a recovered source is picked up immediately.
	if !snap.Partial() {
		if err := s.cache.Set(ctx, key, report); err != nil {
			log.Warn().Err(err).Str("report", name).Msg("intelligence: cache set failed")
		}
	}
	return report
}

func meta(snap *domain.Snapshot, asOf time.Time) ReportMeta {
	return ReportMeta{
		SnapshotID: snap.ID,
		FetchedAt:  snap.FetchedAt,
		AsOf:       asOf,
		Partial:    snap.Partial(),
		Warnings:   snap.Errors,
	}
}

func anomalyInput(snap *domain.Snapshot) intelligence.AnomalyInput {
	return intelligence.AnomalyInput{
		Products:     snap.Products,
		Transactions: snap.Transactions,
		Damages:      snap.Damages,
		CycleCounts:  snap.CycleCounts,
	}
}

func knownSKU(snap *domain.Snapshot, sku string) bool {
	for _, p := range snap.Products {
		if p.ID == sku {
			return true
		}
	}
	for _, t := range snap.Transactions {
		if t.SKU == sku {
			return true
		}
	}
	return false
}

// mergeParams overlays the non-zero fields of override on base.
func mergeParams(base, override intelligence.Params) intelligence.Params {
	p := base
	if override.LeadTimeDays > 0 {
		p.LeadTimeDays = override.LeadTimeDays
	}
	if override.ServiceLevelZ > 0 {
		p.ServiceLevelZ = override.ServiceLevelZ
	}
	if override.TargetDays > 0 {
		p.TargetDays = override.TargetDays
	}
	if override.ClassABoundaryPercent > 0 {
		p.ClassABoundaryPercent = override.ClassABoundaryPercent
	}
	if override.ClassBBoundaryPercent > 0 {
		p.ClassBBoundaryPercent = override.ClassBBoundaryPercent
	}
	if override.AllocationMethod != "" {
		p.AllocationMethod = override.AllocationMethod
	}
	if override.ReconcileTolerance > 0 {
		p.ReconcileTolerance = override.ReconcileTolerance
	}
	if override.UsageWindowDays > 0 {
		p.UsageWindowDays = override.UsageWindowDays
	}
	if override.VelocityWindowDays > 0 {
		p.VelocityWindowDays = override.VelocityWindowDays
	}
	if override.TrendSlopeThreshold > 0 {
		p.TrendSlopeThreshold = override.TrendSlopeThreshold
	}
	if override.MinConfidence > 0 {
		p.MinConfidence = override.MinConfidence
	}
	if override.VarianceThresholdPercent > 0 {
		p.VarianceThresholdPercent = override.VarianceThresholdPercent
	}
	if override.VarianceMinSystemQty > 0 {
		p.VarianceMinSystemQty = override.VarianceMinSystemQty
	}
	if override.FutureToleranceDays > 0 {
		p.FutureToleranceDays = override.FutureToleranceDays
	}
	if override.SlowMovingDays > 0 {
		p.SlowMovingDays = override.SlowMovingDays
	}
	if override.DeadStockDays > 0 {
		p.DeadStockDays = override.DeadStockDays
	}
	return p
}
