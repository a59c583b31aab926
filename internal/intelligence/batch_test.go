package intelligence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/intelligence"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestRemainingLayers_NewestPeeledFirst(t *testing.T) {
	batches := []intelligence.Batch{
		{Date: date(2024, 1, 1), Qty: 100},
		{Date: date(2024, 2, 1), Qty: 50},
	}

	layers := intelligence.RemainingLayers(batches, 80, date(2024, 3, 1), intelligence.FIFO)

	require.Len(t, layers, 2)
	assert.Equal(t, intelligence.StockLayer{Date: "2024-02-01", Qty: 50, DaysOld: 29}, layers[0])
	assert.Equal(t, intelligence.StockLayer{Date: "2024-01-01", Qty: 30, DaysOld: 60}, layers[1])
}

func TestRemainingLayers_UnexplainedStockGetsSentinelLayer(t *testing.T) {
	batches := []intelligence.Batch{{Date: date(2024, 2, 1), Qty: 50}}

	layers := intelligence.RemainingLayers(batches, 70, date(2024, 3, 1), intelligence.FIFO)

	require.Len(t, layers, 2)
	assert.Equal(t, 50, layers[0].Qty)
	assert.True(t, layers[1].IsUnknown())
	assert.Equal(t, 20, layers[1].Qty)
	assert.Equal(t, intelligence.UnknownLayerAge, layers[1].DaysOld)
}

func TestRemainingLayers_NoStockOrNoBatches(t *testing.T) {
	batches := []intelligence.Batch{{Date: date(2024, 2, 1), Qty: 50}}

	assert.Empty(t, intelligence.RemainingLayers(batches, 0, date(2024, 3, 1), intelligence.FIFO))
	assert.Empty(t, intelligence.RemainingLayers(batches, -4, date(2024, 3, 1), intelligence.FIFO))

	onlyUnknown := intelligence.RemainingLayers(nil, 12, date(2024, 3, 1), intelligence.FIFO)
	require.Len(t, onlyUnknown, 1)
	assert.True(t, onlyUnknown[0].IsUnknown())
}

func TestRemainingLayers_NeverExceedsStock(t *testing.T) {
	batches := []intelligence.Batch{
		{Date: date(2024, 1, 1), Qty: 10},
		{Date: date(2024, 1, 5), Qty: 20},
		{Date: date(2024, 1, 9), Qty: 30},
	}
	for stock := 0; stock <= 80; stock += 7 {
		total := 0
		for _, l := range intelligence.RemainingLayers(batches, stock, date(2024, 2, 1), intelligence.FIFO) {
			total += l.Qty
		}
		assert.Equal(t, stock, total)
	}
}

func TestRemainingLayers_FEFOKeepsLatestExpiry(t *testing.T) {
	batches := []intelligence.Batch{
		{ID: "late", Date: date(2024, 1, 1), Qty: 10, ExpiryDate: datePtr(2024, 12, 1)},
		{ID: "soon", Date: date(2024, 2, 1), Qty: 10, ExpiryDate: datePtr(2024, 4, 1)},
	}

	layers := intelligence.RemainingLayers(batches, 10, date(2024, 3, 1), intelligence.FEFO)

	require.Len(t, layers, 1)
	assert.Equal(t, "late", layers[0].BatchID)
}

func TestAllocate_FIFO(t *testing.T) {
	batches := []intelligence.Batch{
		{Date: date(2024, 2, 1), Qty: 30},
		{Date: date(2024, 1, 1), Qty: 10},
		{Date: date(2024, 1, 15), Qty: 20},
	}

	got := intelligence.Allocate(batches, 0, 30, date(2024, 3, 1), intelligence.FIFO)

	require.Len(t, got, 2)
	assert.Equal(t, date(2024, 1, 1), got[0].Date)
	assert.Equal(t, 10, got[0].QtyFromLayer)
	assert.Equal(t, date(2024, 1, 15), got[1].Date)
	assert.Equal(t, 20, got[1].QtyFromLayer)
	assert.Equal(t, 30, intelligence.TotalAllocated(got))
}

func TestAllocate_NetsAlreadySoldFromFront(t *testing.T) {
	batches := []intelligence.Batch{
		{Date: date(2024, 1, 1), Qty: 10},
		{Date: date(2024, 1, 15), Qty: 20},
		{Date: date(2024, 2, 1), Qty: 30},
	}

	got := intelligence.Allocate(batches, 15, 20, date(2024, 3, 1), intelligence.FIFO)

	require.Len(t, got, 2)
	assert.Equal(t, date(2024, 1, 15), got[0].Date)
	assert.Equal(t, 15, got[0].QtyFromLayer)
	assert.Equal(t, date(2024, 2, 1), got[1].Date)
	assert.Equal(t, 5, got[1].QtyFromLayer)
}

func TestAllocate_InsufficientStockFallsShort(t *testing.T) {
	batches := []intelligence.Batch{{Date: date(2024, 1, 1), Qty: 10}}

	got := intelligence.Allocate(batches, 4, 20, date(2024, 3, 1), intelligence.FIFO)

	require.Len(t, got, 1)
	assert.Equal(t, 6, intelligence.TotalAllocated(got))
}

func TestAllocate_FullQuantityCoversEveryBatchOnce(t *testing.T) {
	batches := []intelligence.Batch{
		{ID: "a", Date: date(2024, 1, 1), Qty: 7},
		{ID: "b", Date: date(2024, 1, 2), Qty: 11, ExpiryDate: datePtr(2024, 6, 1)},
		{ID: "c", Date: date(2024, 1, 3), Qty: 13, ExpiryDate: datePtr(2024, 5, 1)},
	}

	for _, method := range []intelligence.AllocationMethod{intelligence.FIFO, intelligence.FEFO} {
		got := intelligence.Allocate(batches, 0, 31, date(2024, 3, 1), method)

		require.Len(t, got, 3, method)
		seen := map[string]int{}
		for _, a := range got {
			seen[a.BatchID] = a.QtyFromLayer
		}
		assert.Equal(t, map[string]int{"a": 7, "b": 11, "c": 13}, seen, method)
		assert.Equal(t, 31, intelligence.TotalAllocated(got), method)
	}
}

func TestAllocate_FEFOPrefersEarlierExpiry(t *testing.T) {
	batches := []intelligence.Batch{
		{ID: "old-late", Date: date(2024, 1, 1), Qty: 10, ExpiryDate: datePtr(2024, 9, 1)},
		{ID: "new-soon", Date: date(2024, 2, 1), Qty: 10, ExpiryDate: datePtr(2024, 4, 1)},
		{ID: "no-expiry", Date: date(2023, 12, 1), Qty: 10},
	}

	got := intelligence.Allocate(batches, 0, 25, date(2024, 3, 1), intelligence.FEFO)

	require.Len(t, got, 3)
	assert.Equal(t, "new-soon", got[0].BatchID)
	assert.Equal(t, "old-late", got[1].BatchID)
	assert.Equal(t, "no-expiry", got[2].BatchID)
	assert.Equal(t, 5, got[2].QtyFromLayer)
}

func TestSortBatches_FEFOTiesByReceiptDate(t *testing.T) {
	expiry := datePtr(2024, 6, 1)
	batches := []intelligence.Batch{
		{ID: "second", Date: date(2024, 2, 1), Qty: 1, ExpiryDate: expiry},
		{ID: "first", Date: date(2024, 1, 1), Qty: 1, ExpiryDate: expiry},
	}

	sorted := intelligence.SortBatches(batches, intelligence.FEFO)

	assert.Equal(t, "first", sorted[0].ID)
	assert.Equal(t, "second", batches[0].ID, "input order is untouched")
}

func TestPreviewAllocation_UsesCatalogStockAndSoldQuantity(t *testing.T) {
	products := []domain.Product{{ID: "X", Name: "Widget", Stock: 45}}
	txns := []domain.Transaction{
		{Date: date(2024, 1, 1), SKU: "X", Qty: 10, Type: domain.TransactionIn},
		{Date: date(2024, 1, 15), SKU: "X", Qty: 20, Type: domain.TransactionIn},
		{Date: date(2024, 2, 1), SKU: "X", Qty: 30, Type: domain.TransactionIn},
		{Date: date(2024, 2, 10), SKU: "X", Qty: 15, Type: domain.TransactionOut},
		{Date: date(2024, 2, 10), SKU: "Y", Qty: 99, Type: domain.TransactionIn},
	}

	preview := intelligence.PreviewAllocation("X", 50, products, txns, date(2024, 3, 1), intelligence.Params{})

	assert.Equal(t, intelligence.FIFO, preview.Method)
	assert.Equal(t, 60, preview.TotalInbound)
	assert.Equal(t, 15, preview.TotalOutbound)
	assert.Equal(t, 45, preview.CurrentStock)
	assert.Equal(t, 45, intelligence.TotalAllocated(preview.Allocations))
	assert.Equal(t, 5, preview.Shortfall)
	assert.False(t, preview.Fulfilled)
}

func TestPreviewAllocation_UnknownSKU(t *testing.T) {
	preview := intelligence.PreviewAllocation("NOPE", 5, nil, nil, date(2024, 3, 1), intelligence.Params{})

	assert.Empty(t, preview.Allocations)
	assert.Equal(t, 0, preview.CurrentStock)
	assert.Equal(t, 5, preview.Shortfall)
}
