package intelligence_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/intelligence"
)

func flat(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func ramp(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return s
}

func TestPlanReorder_FlatUsage(t *testing.T) {
	plan := intelligence.PlanReorder(10, flat(5, 30), intelligence.DefaultParams())

	assert.InDelta(t, 5, plan.AvgDaily, 1e-9)
	assert.InDelta(t, 5, plan.EffectiveDaily, 1e-9)
	assert.Zero(t, plan.SafetyStock)
	assert.Equal(t, 35, plan.ReorderPoint)
	assert.Equal(t, 35, plan.EffectiveMin)
}

func TestPlanReorder_ManualMinimumWins(t *testing.T) {
	plan := intelligence.PlanReorder(100, flat(1, 30), intelligence.DefaultParams())
	assert.Equal(t, 7, plan.ReorderPoint)
	assert.Equal(t, 100, plan.EffectiveMin)
}

func TestSuggestReorders_WellStockedProductIsSkipped(t *testing.T) {
	products := []domain.Product{{ID: "P1", Name: "Bolt", Stock: 50, MinStock: 10}}
	usage := map[string][]float64{"P1": flat(5, 30)}

	got := intelligence.SuggestReorders(products, usage, intelligence.DefaultParams())

	assert.Empty(t, got)
}

func TestSuggestReorders_OutOfStock(t *testing.T) {
	products := []domain.Product{{ID: "P1", Name: "Bolt", Stock: 0, MinStock: 10, Price: decimal.NewFromInt(2)}}
	usage := map[string][]float64{"P1": flat(5, 30)}

	got := intelligence.SuggestReorders(products, usage, intelligence.DefaultParams())

	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Confidence)
	assert.Equal(t, "Critical: Out of Stock", got[0].Reason)
	assert.Equal(t, 150, got[0].SuggestedQty)
	assert.True(t, decimal.NewFromInt(300).Equal(got[0].EstimatedCost))
}

func TestSuggestReorders_BelowReorderPoint(t *testing.T) {
	products := []domain.Product{{ID: "P1", Name: "Bolt", Stock: 20, MinStock: 10}}
	usage := map[string][]float64{"P1": flat(5, 30)}

	got := intelligence.SuggestReorders(products, usage, intelligence.DefaultParams())

	require.Len(t, got, 1)
	assert.InDelta(t, 85, got[0].Confidence, 1e-9)
	assert.Contains(t, got[0].Reason, "below reorder point")
	assert.Equal(t, 130, got[0].SuggestedQty)
	assert.Equal(t, 35, got[0].EffectiveMin)
}

func TestSuggestReorders_BelowReorderPointWithRisingDemand(t *testing.T) {
	products := []domain.Product{{ID: "P1", Name: "Bolt", Stock: 100}}
	usage := map[string][]float64{"P1": ramp(30)}

	got := intelligence.SuggestReorders(products, usage, intelligence.DefaultParams())

	require.Len(t, got, 1)
	assert.InDelta(t, 95, got[0].Confidence, 1e-6)
	assert.Contains(t, got[0].Reason, "trending up")
	assert.Equal(t, intelligence.TrendUp, got[0].TrendInfo.Trend)
}

func TestSuggestReorders_HighVelocityAboveReorderPoint(t *testing.T) {
	// ramp(30): prediction 30/day, safety stock 39, reorder point 249
	products := []domain.Product{{ID: "P1", Name: "Bolt", Stock: 300}}
	usage := map[string][]float64{"P1": ramp(30)}

	got := intelligence.SuggestReorders(products, usage, intelligence.DefaultParams())

	require.Len(t, got, 1)
	assert.Equal(t, 249, got[0].ReorderPoint)
	assert.InDelta(t, 80, got[0].Confidence, 1e-6)
	assert.Contains(t, got[0].Reason, "High velocity")
	assert.Equal(t, 900+39-300, got[0].SuggestedQty)
}

func TestSuggestReorders_SortedByConfidence(t *testing.T) {
	products := []domain.Product{
		{ID: "LOW", Name: "Low", Stock: 20, MinStock: 10},
		{ID: "SKIP", Name: "Skip", Stock: 500},
		{ID: "OUT", Name: "Out", Stock: -3},
		{ID: "FAST", Name: "Fast", Stock: 300},
	}
	usage := map[string][]float64{
		"LOW":  flat(5, 30),
		"SKIP": flat(1, 30),
		"OUT":  flat(2, 30),
		"FAST": ramp(30),
	}

	got := intelligence.SuggestReorders(products, usage, intelligence.DefaultParams())

	require.Len(t, got, 3)
	assert.Equal(t, []string{"OUT", "LOW", "FAST"}, []string{got[0].ID, got[1].ID, got[2].ID})
	for _, s := range got {
		assert.Greater(t, s.Confidence, 50.0)
		assert.GreaterOrEqual(t, s.SuggestedQty, 0)
	}
}

func TestSuggestReorders_DoesNotMutateInputs(t *testing.T) {
	products := []domain.Product{{ID: "P1", Stock: 0}}
	usage := map[string][]float64{"P1": {1, 2, 3}}

	intelligence.SuggestReorders(products, usage, intelligence.DefaultParams())

	assert.Equal(t, 0, products[0].Stock)
	assert.Equal(t, []float64{1, 2, 3}, usage["P1"])
}

func TestSuggestReordersFromLog_BuildsUsageWindow(t *testing.T) {
	asOf := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	products := []domain.Product{{ID: "P1", Name: "Bolt", Stock: 20, MinStock: 10}}
	var txns []domain.Transaction
	for i := 0; i < 30; i++ {
		txns = append(txns, domain.Transaction{
			Date: asOf.AddDate(0, 0, -i), SKU: "P1", Qty: 5, Type: domain.TransactionOut,
		})
	}
	// outside the window
	txns = append(txns, domain.Transaction{Date: asOf.AddDate(0, 0, -45), SKU: "P1", Qty: 500, Type: domain.TransactionOut})

	got := intelligence.SuggestReordersFromLog(products, txns, asOf, intelligence.Params{})

	require.Len(t, got, 1)
	assert.InDelta(t, 5, got[0].AvgDaily, 1e-9)
	assert.Equal(t, 35, got[0].ReorderPoint)
}

func TestDailyUsage_ZeroFillsAndOrdersOldestFirst(t *testing.T) {
	asOf := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	txns := []domain.Transaction{
		{Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), SKU: "A", Qty: 4, Type: domain.TransactionOut},
		{Date: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), SKU: "A", Qty: 2, Type: domain.TransactionOut},
		{Date: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), SKU: "A", Qty: 1, Type: domain.TransactionOut},
		{Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), SKU: "A", Qty: 9, Type: domain.TransactionIn},
		{Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), SKU: "B", Qty: 9, Type: domain.TransactionOut},
	}

	assert.Equal(t, []float64{0, 3, 0, 4}, intelligence.DailyUsage(txns, "A", asOf, 4))
}

func TestUsageBySKU_NonPositiveWindow(t *testing.T) {
	products := []domain.Product{{ID: "A"}, {ID: "B"}}
	txns := []domain.Transaction{
		{Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), SKU: "A", Qty: 4, Type: domain.TransactionOut},
	}
	asOf := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, days := range []int{0, -3} {
		var got map[string][]float64
		require.NotPanics(t, func() { got = intelligence.UsageBySKU(products, txns, asOf, days) })
		assert.Len(t, got, 2)
		assert.Empty(t, got["A"])
	}

	got := intelligence.UsageBySKU(products, txns, asOf, 2)
	assert.Equal(t, []float64{0, 4}, got["A"])
	assert.Equal(t, []float64{0, 0}, got["B"])
}
