package intelligence

import (
	"time"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

const day = 24 * time.Hour

// calendarDay keeps the calendar date of t as read in its own location.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b (negative when b is earlier).
func daysBetween(a, b time.Time) int {
	return int(calendarDay(b).Sub(calendarDay(a)) / day)
}

// DailyUsage returns the outbound quantity of sku for each of the `days` calendar days
// ending on asOf (oldest first), zero-filled for days without movement.
func DailyUsage(txns []domain.Transaction, sku string, asOf time.Time, days int) []float64 {
	if days <= 0 {
		return nil
	}
	series := make([]float64, days)
	for _, t := range txns {
		if t.SKU != sku || !t.IsOutbound() {
			continue
		}
		age := daysBetween(t.Date, asOf)
		if age < 0 || age >= days {
			continue
		}
		series[days-1-age] += float64(t.Qty)
	}
	return series
}

// UsageBySKU builds DailyUsage for every product in one pass over the log.
func UsageBySKU(products []domain.Product, txns []domain.Transaction, asOf time.Time, days int) map[string][]float64 {
	out := make(map[string][]float64, len(products))
	if days <= 0 {
		for _, p := range products {
			out[p.ID] = nil
		}
		return out
	}
	for _, p := range products {
		out[p.ID] = make([]float64, days)
	}
	for _, t := range txns {
		if !t.IsOutbound() {
			continue
		}
		series, ok := out[t.SKU]
		if !ok {
			continue
		}
		age := daysBetween(t.Date, asOf)
		if age < 0 || age >= days {
			continue
		}
		series[days-1-age] += float64(t.Qty)
	}
	return out
}
