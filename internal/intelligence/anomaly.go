package intelligence

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

// Severity orders anomaly findings.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

// IssueAction is what the dashboard offers to do about a finding.
type IssueAction string

const (
	ActionFixStock IssueAction = "FIX_STOCK"
	ActionReview   IssueAction = "REVIEW"
)

// AnomalyIssue is one advisory data-quality finding.
type AnomalyIssue struct {
	ID          string      `json:"id"`
	Type        Severity    `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	EntityID    string      `json:"entity_id"`
	EntityName  string      `json:"entity_name"`
	Value       string      `json:"value"`
	Action      IssueAction `json:"action"`
}

// AnomalyInput bundles the collections the rules read.
type AnomalyInput struct {
	Products     []domain.Product
	Transactions []domain.Transaction
	Damages      []domain.DamageRecord
	CycleCounts  []domain.CycleCount
}

// placeholderLocations are location values that mean "not put away".
var placeholderLocations = map[string]bool{
	"":        true,
	"-":       true,
	"--":      true,
	"?":       true,
	"N/A":     true,
	"NA":      true,
	"NONE":    true,
	"NULL":    true,
	"TBD":     true,
	"UNKNOWN": true,
	"PENDING": true,
}

// IsPlaceholderLocation reports whether loc names no real location.
func IsPlaceholderLocation(loc string) bool {
	return placeholderLocations[strings.ToUpper(strings.TrimSpace(loc))]
}

type anomalyRule func(in AnomalyInput, asOf time.Time, p Params) []AnomalyIssue

// DetectAnomalies runs every rule and returns the findings, most severe first.
// Within a severity, findings keep rule order.
func DetectAnomalies(in AnomalyInput, asOf time.Time, p Params) []AnomalyIssue {
	p = p.WithDefaults()
	rules := []anomalyRule{
		negativeStockRule,
		cycleCountVarianceRule,
		ghostInventoryRule,
		futureTransactionRule,
		reconciliationRule,
	}

	issues := make([]AnomalyIssue, 0)
	for _, rule := range rules {
		issues = append(issues, rule(in, asOf, p)...)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank[issues[i].Type] < severityRank[issues[j].Type]
	})
	return issues
}

func negativeStockRule(in AnomalyInput, _ time.Time, _ Params) []AnomalyIssue {
	var issues []AnomalyIssue
	for _, prod := range in.Products {
		if prod.Stock >= 0 {
			continue
		}
		issues = append(issues, AnomalyIssue{
			ID:          "negative-stock-" + prod.ID,
			Type:        SeverityCritical,
			Title:       "Negative Inventory",
			Description: fmt.Sprintf("%s shows %d %s on hand; more was issued than was ever received", prod.Name, prod.Stock, prod.Unit),
			EntityID:    prod.ID,
			EntityName:  prod.Name,
			Value:       fmt.Sprintf("%d", prod.Stock),
			Action:      ActionFixStock,
		})
	}
	return issues
}

func cycleCountVarianceRule(in AnomalyInput, _ time.Time, p Params) []AnomalyIssue {
	names := productNames(in.Products)
	var issues []AnomalyIssue
	for i, cc := range in.CycleCounts {
		if cc.SystemQty <= p.VarianceMinSystemQty {
			continue
		}
		variance := cc.Variance()
		ratio := math.Abs(float64(variance)) / math.Abs(float64(cc.SystemQty)) * 100
		if ratio <= p.VarianceThresholdPercent {
			continue
		}
		issues = append(issues, AnomalyIssue{
			ID:          fmt.Sprintf("count-variance-%s-%d", cc.SKU, i),
			Type:        SeverityWarning,
			Title:       "Cycle Count Variance",
			Description: fmt.Sprintf("Counted %d against system %d on %s (%+d)", cc.CountedQty, cc.SystemQty, cc.Date.Format(dateLayout), variance),
			EntityID:    cc.SKU,
			EntityName:  names[cc.SKU],
			Value:       fmt.Sprintf("%.1f%%", ratio),
			Action:      ActionReview,
		})
	}
	return issues
}

func ghostInventoryRule(in AnomalyInput, _ time.Time, _ Params) []AnomalyIssue {
	var issues []AnomalyIssue
	for _, prod := range in.Products {
		if prod.Stock <= 0 || !IsPlaceholderLocation(prod.Location) {
			continue
		}
		issues = append(issues, AnomalyIssue{
			ID:          "ghost-inventory-" + prod.ID,
			Type:        SeverityWarning,
			Title:       "Ghost Inventory",
			Description: fmt.Sprintf("%d %s of %s on hand with no storage location", prod.Stock, prod.Unit, prod.Name),
			EntityID:    prod.ID,
			EntityName:  prod.Name,
			Value:       fmt.Sprintf("%d", prod.Stock),
			Action:      ActionReview,
		})
	}
	return issues
}

func futureTransactionRule(in AnomalyInput, asOf time.Time, p Params) []AnomalyIssue {
	names := productNames(in.Products)
	var issues []AnomalyIssue
	for i, t := range in.Transactions {
		ahead := daysBetween(asOf, t.Date)
		if ahead <= p.FutureToleranceDays {
			continue
		}
		ref := t.DocRef
		if ref == "" {
			ref = fmt.Sprintf("row %d", i+1)
		}
		issues = append(issues, AnomalyIssue{
			ID:          fmt.Sprintf("future-date-%s-%d", t.SKU, i),
			Type:        SeverityInfo,
			Title:       "Future-Dated Transaction",
			Description: fmt.Sprintf("%s %s of %d dated %d days ahead (%s)", t.Type, ref, t.Qty, ahead, t.Date.Format(dateLayout)),
			EntityID:    t.SKU,
			EntityName:  names[t.SKU],
			Value:       t.Date.Format(dateLayout),
			Action:      ActionReview,
		})
	}
	return issues
}

// reconciliationRule compares the catalog stock with inbound - outbound - damage.
// Log rows for unknown SKUs are ignored.
func reconciliationRule(in AnomalyInput, _ time.Time, p Params) []AnomalyIssue {
	net := make(map[string]int, len(in.Products))
	for _, prod := range in.Products {
		net[prod.ID] = 0
	}
	for _, t := range in.Transactions {
		if _, ok := net[t.SKU]; !ok {
			continue
		}
		switch t.Type {
		case domain.TransactionIn:
			net[t.SKU] += t.Qty
		case domain.TransactionOut:
			net[t.SKU] -= t.Qty
		}
	}
	for _, d := range in.Damages {
		if _, ok := net[d.SKU]; ok {
			net[d.SKU] -= d.Qty
		}
	}

	var issues []AnomalyIssue
	for _, prod := range in.Products {
		flow := net[prod.ID]
		diff := prod.Stock - flow
		if diff == 0 || absInt(diff) <= p.ReconcileTolerance {
			continue
		}
		issues = append(issues, AnomalyIssue{
			ID:          "stock-mismatch-" + prod.ID,
			Type:        SeverityWarning,
			Title:       "Stock Mismatch",
			Description: fmt.Sprintf("Reported stock %d differs from logged net flow %d", prod.Stock, flow),
			EntityID:    prod.ID,
			EntityName:  prod.Name,
			Value:       fmt.Sprintf("%+d", diff),
			Action:      ActionFixStock,
		})
	}
	return issues
}

func productNames(products []domain.Product) map[string]string {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
