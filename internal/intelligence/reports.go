package intelligence

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

// MovementStatus buckets a product by time since its last sale.
type MovementStatus string

const (
	MovementActive MovementStatus = "ACTIVE"
	MovementSlow   MovementStatus = "SLOW_MOVING"
	MovementDead   MovementStatus = "DEAD_STOCK"
)

// AllocationPreview answers "which batches would ship if we sent requestedQty of sku".
type AllocationPreview struct {
	SKU           string           `json:"sku"`
	RequestedQty  int              `json:"requested_qty"`
	Method        AllocationMethod `json:"method"`
	Allocations   []Allocation     `json:"allocations"`
	TotalInbound  int              `json:"total_inbound"`
	TotalOutbound int              `json:"total_outbound"`
	CurrentStock  int              `json:"current_stock"`
	Shortfall     int              `json:"shortfall"`
	Fulfilled     bool             `json:"fulfilled"`
}

// PreviewAllocation runs Allocate for sku against the full log. Cumulative outbound
// quantity is treated as already consumed. CurrentStock comes from the catalog when the
// product is known, otherwise from inbound minus outbound.
func PreviewAllocation(sku string, requested int, products []domain.Product, txns []domain.Transaction, asOf time.Time, p Params) AllocationPreview {
	p = p.WithDefaults()

	var inbound, outbound int
	for _, t := range txns {
		if t.SKU != sku {
			continue
		}
		switch t.Type {
		case domain.TransactionIn:
			inbound += t.Qty
		case domain.TransactionOut:
			outbound += t.Qty
		}
	}

	current := inbound - outbound
	for _, prod := range products {
		if prod.ID == sku {
			current = prod.Stock
			break
		}
	}

	allocations := Allocate(BatchesFor(txns, sku), outbound, requested, asOf, p.AllocationMethod)
	allocated := TotalAllocated(allocations)

	return AllocationPreview{
		SKU:           sku,
		RequestedQty:  requested,
		Method:        p.AllocationMethod,
		Allocations:   allocations,
		TotalInbound:  inbound,
		TotalOutbound: outbound,
		CurrentStock:  current,
		Shortfall:     max(requested-allocated, 0),
		Fulfilled:     allocated >= requested,
	}
}

// AgingEntry is one product of the aging report.
type AgingEntry struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Stock             int             `json:"stock"`
	StockValue        decimal.Decimal `json:"stock_value"`
	LastSoldDate      *time.Time      `json:"last_sold_date"`
	DaysSinceLastSale int             `json:"days_since_last_sale"`
	MovementStatus    MovementStatus  `json:"movement_status"`
	Layers            []StockLayer    `json:"layers"`
}

// AgingReport reconstructs the remaining layers and sales recency of every product.
// Products that never sold report DaysSinceLastSale -1.
func AgingReport(products []domain.Product, txns []domain.Transaction, asOf time.Time, p Params) []AgingEntry {
	p = p.WithDefaults()

	batches := make(map[string][]Batch, len(products))
	lastSold := make(map[string]time.Time, len(products))
	for _, t := range txns {
		switch {
		case t.IsInbound() && t.Qty > 0:
			batches[t.SKU] = append(batches[t.SKU], Batch{ID: t.BatchID, Date: t.Date, Qty: t.Qty, ExpiryDate: t.ExpiryDate})
		case t.IsOutbound():
			if last, ok := lastSold[t.SKU]; !ok || t.Date.After(last) {
				lastSold[t.SKU] = t.Date
			}
		}
	}

	entries := make([]AgingEntry, 0, len(products))
	for _, prod := range products {
		entry := AgingEntry{
			ID:                prod.ID,
			Name:              prod.Name,
			Stock:             prod.Stock,
			StockValue:        prod.Price.Mul(decimal.NewFromInt(int64(max(prod.Stock, 0)))),
			DaysSinceLastSale: -1,
			MovementStatus:    MovementDead,
			Layers:            RemainingLayers(batches[prod.ID], prod.Stock, asOf, p.AllocationMethod),
		}
		if last, ok := lastSold[prod.ID]; ok {
			sold := last
			entry.LastSoldDate = &sold
			entry.DaysSinceLastSale = max(daysBetween(last, asOf), 0)
			entry.MovementStatus = movementStatus(entry.DaysSinceLastSale, p)
		}
		entries = append(entries, entry)
	}
	return entries
}

func movementStatus(daysSinceSale int, p Params) MovementStatus {
	switch {
	case daysSinceSale <= p.SlowMovingDays:
		return MovementActive
	case daysSinceSale <= p.DeadStockDays:
		return MovementSlow
	default:
		return MovementDead
	}
}
