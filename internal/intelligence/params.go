// Package intelligence turns product and transaction records into decision support:
// demand trend, safety stock and reorder sizing, FIFO/FEFO batch layers, ABC slotting
// and data-quality findings.
//
// Every function here is pure and synchronous. Inputs are never mutated and wall-clock
// time is always passed in explicitly, so results are deterministic for identical inputs.
package intelligence

import (
	"fmt"
	"strings"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

// AllocationMethod selects the batch consumption order.
type AllocationMethod string

const (
	FIFO AllocationMethod = "FIFO"
	FEFO AllocationMethod = "FEFO"
)

// ParseAllocationMethod accepts FIFO or FEFO in any case.
func ParseAllocationMethod(s string) (AllocationMethod, error) {
	switch AllocationMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case FIFO:
		return FIFO, nil
	case FEFO:
		return FEFO, nil
	}
	return "", fmt.Errorf("%w: unknown allocation method %q", domain.ErrInvalidInput, s)
}

// Params holds every tunable threshold used by the engine.
type Params struct {
	LeadTimeDays          int              `json:"lead_time_days"`
	ServiceLevelZ         float64          `json:"service_level_z"`
	TargetDays            int              `json:"target_days"`
	ClassABoundaryPercent float64          `json:"class_a_boundary_percent"`
	ClassBBoundaryPercent float64          `json:"class_b_boundary_percent"`
	AllocationMethod      AllocationMethod `json:"allocation_method"`

	UsageWindowDays     int     `json:"usage_window_days"`
	VelocityWindowDays  int     `json:"velocity_window_days"`
	TrendSlopeThreshold float64 `json:"trend_slope_threshold"`
	MinConfidence       float64 `json:"min_confidence"`

	VarianceThresholdPercent float64 `json:"variance_threshold_percent"`
	VarianceMinSystemQty     int     `json:"variance_min_system_qty"`
	FutureToleranceDays      int     `json:"future_tolerance_days"`
	// ReconcileTolerance is the largest |stock - netFlow| that is not reported.
	ReconcileTolerance int `json:"reconcile_tolerance"`

	SlowMovingDays int `json:"slow_moving_days"`
	DeadStockDays  int `json:"dead_stock_days"`
}

// DefaultParams returns the stock defaults.
func DefaultParams() Params {
	return Params{
		LeadTimeDays:             7,
		ServiceLevelZ:            1.65,
		TargetDays:               30,
		ClassABoundaryPercent:    20,
		ClassBBoundaryPercent:    50,
		AllocationMethod:         FIFO,
		UsageWindowDays:          30,
		VelocityWindowDays:       30,
		TrendSlopeThreshold:      0.1,
		MinConfidence:            50,
		VarianceThresholdPercent: 50,
		VarianceMinSystemQty:     5,
		FutureToleranceDays:      2,
		ReconcileTolerance:       0,
		SlowMovingDays:           30,
		DeadStockDays:            90,
	}
}

// WithDefaults fills every zero-valued field from DefaultParams.
// ReconcileTolerance is left alone since zero is its default.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.LeadTimeDays <= 0 {
		p.LeadTimeDays = d.LeadTimeDays
	}
	if p.ServiceLevelZ <= 0 {
		p.ServiceLevelZ = d.ServiceLevelZ
	}
	if p.TargetDays <= 0 {
		p.TargetDays = d.TargetDays
	}
	if p.ClassABoundaryPercent <= 0 {
		p.ClassABoundaryPercent = d.ClassABoundaryPercent
	}
	if p.ClassBBoundaryPercent <= 0 {
		p.ClassBBoundaryPercent = d.ClassBBoundaryPercent
	}
	if p.AllocationMethod == "" {
		p.AllocationMethod = d.AllocationMethod
	}
	if p.UsageWindowDays <= 0 {
		p.UsageWindowDays = d.UsageWindowDays
	}
	if p.VelocityWindowDays <= 0 {
		p.VelocityWindowDays = d.VelocityWindowDays
	}
	if p.TrendSlopeThreshold <= 0 {
		p.TrendSlopeThreshold = d.TrendSlopeThreshold
	}
	if p.MinConfidence <= 0 {
		p.MinConfidence = d.MinConfidence
	}
	if p.VarianceThresholdPercent <= 0 {
		p.VarianceThresholdPercent = d.VarianceThresholdPercent
	}
	if p.VarianceMinSystemQty <= 0 {
		p.VarianceMinSystemQty = d.VarianceMinSystemQty
	}
	if p.FutureToleranceDays <= 0 {
		p.FutureToleranceDays = d.FutureToleranceDays
	}
	if p.SlowMovingDays <= 0 {
		p.SlowMovingDays = d.SlowMovingDays
	}
	if p.DeadStockDays <= 0 {
		p.DeadStockDays = d.DeadStockDays
	}
	return p
}

// Validate rejects combinations the engine cannot interpret.
func (p Params) Validate() error {
	if p.ClassABoundaryPercent >= p.ClassBBoundaryPercent {
		return fmt.Errorf("%w: class A boundary (%.1f) must be below class B boundary (%.1f)",
			domain.ErrInvalidInput, p.ClassABoundaryPercent, p.ClassBBoundaryPercent)
	}
	if p.ClassBBoundaryPercent > 100 {
		return fmt.Errorf("%w: class B boundary %.1f exceeds 100", domain.ErrInvalidInput, p.ClassBBoundaryPercent)
	}
	if p.AllocationMethod != FIFO && p.AllocationMethod != FEFO {
		return fmt.Errorf("%w: unknown allocation method %q", domain.ErrInvalidInput, p.AllocationMethod)
	}
	if p.ReconcileTolerance < 0 {
		return fmt.Errorf("%w: reconcile tolerance must not be negative", domain.ErrInvalidInput)
	}
	if p.SlowMovingDays > p.DeadStockDays {
		return fmt.Errorf("%w: slow moving days must not exceed dead stock days", domain.ErrInvalidInput)
	}
	return nil
}
