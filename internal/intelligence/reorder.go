package intelligence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/shopspring/decimal"
)

// ReorderSuggestion is an advisory restock line for one product.
type ReorderSuggestion struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CurrentStock   int             `json:"current_stock"`
	MinStock       int             `json:"min_stock"`
	Confidence     float64         `json:"confidence"`
	Reason         string          `json:"reason"`
	SuggestedQty   int             `json:"suggested_qty"`
	TrendInfo      TrendResult     `json:"trend_info"`
	ReorderPoint   int             `json:"reorder_point"`
	SafetyStock    int             `json:"safety_stock"`
	EffectiveMin   int             `json:"effective_min"`
	AvgDaily       float64         `json:"avg_daily"`
	PredictedDaily float64         `json:"predicted_daily"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
}

// ReorderPlan is the per-product sizing that the decision policy reads.
type ReorderPlan struct {
	Trend          TrendResult
	AvgDaily       float64
	PredictedDaily float64
	EffectiveDaily float64
	SafetyStock    int
	ReorderPoint   int
	EffectiveMin   int
}

// PlanReorder sizes the reorder point for one usage window.
func PlanReorder(minStock int, usage []float64, p Params) ReorderPlan {
	trend := EstimateTrend(usage, p.TrendSlopeThreshold)
	avg := mean(usage)
	predicted := trend.Prediction
	if predicted <= 0 {
		predicted = avg
	}
	effective := math.Max(avg, predicted)
	ss := SafetyStock(usage, p.LeadTimeDays, p.ServiceLevelZ)
	rop := int(math.Ceil(effective*float64(p.LeadTimeDays) + float64(ss)))

	effMin := minStock
	if rop > effMin {
		effMin = rop
	}

	return ReorderPlan{
		Trend:          trend,
		AvgDaily:       avg,
		PredictedDaily: predicted,
		EffectiveDaily: effective,
		SafetyStock:    ss,
		ReorderPoint:   rop,
		EffectiveMin:   effMin,
	}
}

// SuggestReorders evaluates every product against its usage window and returns the
// suggestions whose confidence clears p.MinConfidence, highest confidence first.
// Products missing from usage are evaluated against an all-zero window.
func SuggestReorders(products []domain.Product, usage map[string][]float64, p Params) []ReorderSuggestion {
	p = p.WithDefaults()
	suggestions := make([]ReorderSuggestion, 0)

	for _, prod := range products {
		series, ok := usage[prod.ID]
		if !ok {
			series = make([]float64, p.UsageWindowDays)
		}
		plan := PlanReorder(prod.MinStock, series, p)

		confidence, reason, ok := decideReorder(prod.Stock, plan, p)
		if !ok || confidence <= p.MinConfidence {
			continue
		}

		qty := int(math.Ceil(plan.EffectiveDaily*float64(p.TargetDays))) + plan.SafetyStock - prod.Stock
		if qty < 0 {
			qty = 0
		}

		suggestions = append(suggestions, ReorderSuggestion{
			ID:             prod.ID,
			Name:           prod.Name,
			CurrentStock:   prod.Stock,
			MinStock:       prod.MinStock,
			Confidence:     confidence,
			Reason:         reason,
			SuggestedQty:   qty,
			TrendInfo:      plan.Trend,
			ReorderPoint:   plan.ReorderPoint,
			SafetyStock:    plan.SafetyStock,
			EffectiveMin:   plan.EffectiveMin,
			AvgDaily:       plan.AvgDaily,
			PredictedDaily: plan.PredictedDaily,
			EstimatedCost:  prod.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

// SuggestReordersFromLog builds each product's usage window from the transaction log
// ending on asOf and runs SuggestReorders.
func SuggestReordersFromLog(products []domain.Product, txns []domain.Transaction, asOf time.Time, p Params) []ReorderSuggestion {
	p = p.WithDefaults()
	return SuggestReorders(products, UsageBySKU(products, txns, asOf, p.UsageWindowDays), p)
}

// decideReorder applies the policy rules in order; the first match wins.
func decideReorder(stock int, plan ReorderPlan, p Params) (float64, string, bool) {
	slope := plan.Trend.Slope

	if stock <= 0 {
		return 100, "Critical: Out of Stock", true
	}

	if stock <= plan.EffectiveMin {
		confidence := clamp(85+slope*10, 0, 100)
		if slope > p.TrendSlopeThreshold {
			return confidence, fmt.Sprintf("Demand trending up (+%.2f/day), stock at or below reorder point %d", slope, plan.EffectiveMin), true
		}
		return confidence, fmt.Sprintf("Stock %d is below reorder point %d", stock, plan.EffectiveMin), true
	}

	if plan.Trend.Trend == TrendUp && float64(stock) < float64(plan.EffectiveMin)*1.5 {
		confidence := clamp(60+plan.Trend.RSquared*20, 0, 100)
		return confidence, fmt.Sprintf("High velocity: demand growing %.1f%% per day, stock under 1.5x reorder point", plan.Trend.GrowthRate), true
	}

	return 0, "", false
}
