package intelligence

import (
	"math"
	"sort"
	"time"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

const (
	// UnknownLayerDate labels the synthetic layer holding stock no receipt explains.
	UnknownLayerDate = "Unknown"
	// UnknownLayerAge is the sentinel age of that layer.
	UnknownLayerAge = 999

	dateLayout = "2006-01-02"
)

// Batch is one inbound receipt of a SKU.
type Batch struct {
	ID         string     `json:"id,omitempty"`
	Date       time.Time  `json:"date"`
	Qty        int        `json:"qty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// StockLayer is the slice of remaining stock attributed to one batch.
type StockLayer struct {
	BatchID    string     `json:"batch_id,omitempty"`
	Date       string     `json:"date"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Qty        int        `json:"qty"`
	DaysOld    int        `json:"days_old"`
}

// IsUnknown reports whether the layer is the unexplained-stock sentinel.
func (l StockLayer) IsUnknown() bool {
	return l.Date == UnknownLayerDate
}

// Allocation is the part of a requested quantity served from one batch.
type Allocation struct {
	BatchID      string     `json:"batch_id,omitempty"`
	Date         time.Time  `json:"date"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	QtyFromLayer int        `json:"qty_from_layer"`
	DaysOld      int        `json:"days_old"`
}

// BatchesFor collects the inbound receipts of sku, in log order.
func BatchesFor(txns []domain.Transaction, sku string) []Batch {
	batches := make([]Batch, 0)
	for _, t := range txns {
		if t.SKU != sku || !t.IsInbound() || t.Qty <= 0 {
			continue
		}
		batches = append(batches, Batch{
			ID:         t.BatchID,
			Date:       t.Date,
			Qty:        t.Qty,
			ExpiryDate: t.ExpiryDate,
		})
	}
	return batches
}

// SortBatches returns a copy of batches in consumption order for method.
// FIFO: ascending receipt date. FEFO: ascending expiry, batches without expiry last,
// ties by ascending receipt date.
func SortBatches(batches []Batch, method AllocationMethod) []Batch {
	sorted := make([]Batch, len(batches))
	copy(sorted, batches)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if method == FEFO {
			switch {
			case a.ExpiryDate != nil && b.ExpiryDate == nil:
				return true
			case a.ExpiryDate == nil && b.ExpiryDate != nil:
				return false
			case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		}
		return a.Date.Before(b.Date)
	})
	return sorted
}

// RemainingLayers reconstructs which batches the current stock is made of.
// Consumption eats batches from the front of the method's order, so what remains is
// peeled from the back: under FIFO that is newest receipt first. Stock that the
// receipts cannot explain lands in a single UnknownLayerDate layer.
func RemainingLayers(batches []Batch, stock int, asOf time.Time, method AllocationMethod) []StockLayer {
	layers := make([]StockLayer, 0)
	if stock <= 0 {
		return layers
	}

	ordered := SortBatches(batches, method)
	remaining := stock
	for i := len(ordered) - 1; i >= 0 && remaining > 0; i-- {
		b := ordered[i]
		if b.Qty <= 0 {
			continue
		}
		take := min(remaining, b.Qty)
		layers = append(layers, StockLayer{
			BatchID:    b.ID,
			Date:       b.Date.Format(dateLayout),
			ExpiryDate: b.ExpiryDate,
			Qty:        take,
			DaysOld:    ageInDays(b.Date, asOf),
		})
		remaining -= take
	}

	if remaining > 0 {
		layers = append(layers, StockLayer{
			Date:    UnknownLayerDate,
			Qty:     remaining,
			DaysOld: UnknownLayerAge,
		})
	}
	return layers
}

// Allocate previews which batches would back an outbound quantity. alreadySold is
// netted off the front of the consumption order first. When the batches run out
// the allocations sum to less than requested; callers detect that by the sum.
func Allocate(batches []Batch, alreadySold, requested int, asOf time.Time, method AllocationMethod) []Allocation {
	allocations := make([]Allocation, 0)
	if requested <= 0 {
		return allocations
	}

	consumed := max(alreadySold, 0)
	need := requested
	for _, b := range SortBatches(batches, method) {
		if need == 0 {
			break
		}
		available := b.Qty
		if consumed > 0 {
			used := min(consumed, available)
			consumed -= used
			available -= used
		}
		if available <= 0 {
			continue
		}

		take := min(need, available)
		allocations = append(allocations, Allocation{
			BatchID:      b.ID,
			Date:         b.Date,
			ExpiryDate:   b.ExpiryDate,
			QtyFromLayer: take,
			DaysOld:      ageInDays(b.Date, asOf),
		})
		need -= take
	}
	return allocations
}

// TotalAllocated sums QtyFromLayer.
func TotalAllocated(allocations []Allocation) int {
	total := 0
	for _, a := range allocations {
		total += a.QtyFromLayer
	}
	return total
}

// ageInDays is ceil((asOf - received) / 1 day), floored at zero.
func ageInDays(received, asOf time.Time) int {
	days := math.Ceil(asOf.Sub(received).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}
