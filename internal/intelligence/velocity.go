package intelligence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

// VelocityClass is the ABC bucket of a product; D marks deadstock.
type VelocityClass string

const (
	ClassA VelocityClass = "A"
	ClassB VelocityClass = "B"
	ClassC VelocityClass = "C"
	ClassD VelocityClass = "D"
)

// SlottingAction is the recommended move for a product's pick location.
type SlottingAction string

const (
	ActionMoveForward SlottingAction = "MOVE_FORWARD"
	ActionMoveBack    SlottingAction = "MOVE_BACK"
	ActionKeep        SlottingAction = "KEEP"
)

// Zone ranks for the ideal placement of each class; lower is closer to dispatch.
const (
	FrontZoneRank  = 0
	MiddleZoneRank = 1
	BackZoneRank   = 2
)

var idealZones = map[VelocityClass]string{
	ClassA: "Front/Zone A",
	ClassB: "Middle/Zone B",
	ClassC: "Back/Zone C",
	ClassD: "Back/Zone C",
}

// ZoneOrder ranks a location code by distance from dispatch. ok is false when the
// location carries no usable zone.
type ZoneOrder func(location string) (rank int, ok bool)

// AlphabeticalZones reads the first letter of the location as the zone: A is rank 0,
// B rank 1 and so on.
func AlphabeticalZones(location string) (int, bool) {
	loc := strings.TrimSpace(strings.ToUpper(location))
	if loc == "" {
		return 0, false
	}
	c := loc[0]
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c - 'A'), true
}

// ZoneList ranks locations by the position of their first-character zone in zones,
// e.g. ZoneList("F", "M", "B") for a Front/Middle/Back layout.
func ZoneList(zones ...string) ZoneOrder {
	ranks := make(map[string]int, len(zones))
	for i, z := range zones {
		ranks[strings.ToUpper(z)] = i
	}
	return func(location string) (int, bool) {
		loc := strings.TrimSpace(strings.ToUpper(location))
		if loc == "" {
			return 0, false
		}
		rank, ok := ranks[loc[:1]]
		return rank, ok
	}
}

// SlottingInsight is the velocity class and placement advice for one product.
type SlottingInsight struct {
	ProductID     string         `json:"product_id"`
	Name          string         `json:"name"`
	Location      string         `json:"location"`
	VelocityScore float64        `json:"velocity_score"`
	Percentile    float64        `json:"percentile"`
	Class         VelocityClass  `json:"class"`
	IdealZone     string         `json:"ideal_zone"`
	Action        SlottingAction `json:"action"`
	Reason        string         `json:"reason"`
}

// ClassDistribution counts products per class.
type ClassDistribution struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
	D int `json:"D"`
}

// SlottingReport is the full classifier output.
type SlottingReport struct {
	Insights     []SlottingInsight `json:"insights"`
	Distribution ClassDistribution `json:"distribution"`
}

// VelocityScores sums outbound quantity per product over the windowDays ending on asOf.
func VelocityScores(products []domain.Product, txns []domain.Transaction, asOf time.Time, windowDays int) map[string]float64 {
	scores := make(map[string]float64, len(products))
	for _, p := range products {
		scores[p.ID] = 0
	}
	for _, t := range txns {
		if !t.IsOutbound() {
			continue
		}
		if _, ok := scores[t.SKU]; !ok {
			continue
		}
		age := daysBetween(t.Date, asOf)
		if age < 0 || age >= windowDays {
			continue
		}
		scores[t.SKU] += float64(t.Qty)
	}
	return scores
}

// ClassifyVelocity ranks products by outbound volume and recommends a zone for each.
// A nil zones falls back to AlphabeticalZones.
func ClassifyVelocity(products []domain.Product, txns []domain.Transaction, asOf time.Time, p Params, zones ZoneOrder) SlottingReport {
	p = p.WithDefaults()
	if zones == nil {
		zones = AlphabeticalZones
	}

	scores := VelocityScores(products, txns, asOf, p.VelocityWindowDays)
	ranked := make([]domain.Product, len(products))
	copy(ranked, products)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].ID], scores[ranked[j].ID]
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})

	report := SlottingReport{Insights: make([]SlottingInsight, 0, len(ranked))}
	total := len(ranked)
	for i, prod := range ranked {
		score := scores[prod.ID]
		percentile := float64(i) / float64(total) * 100
		class := classify(score, percentile, p)

		action, reason := slottingAction(class, prod.Location, zones)
		report.Insights = append(report.Insights, SlottingInsight{
			ProductID:     prod.ID,
			Name:          prod.Name,
			Location:      prod.Location,
			VelocityScore: score,
			Percentile:    percentile,
			Class:         class,
			IdealZone:     idealZones[class],
			Action:        action,
			Reason:        fmt.Sprintf("%s (%.0f units out in %d days, rank %d of %d)", reason, score, p.VelocityWindowDays, i+1, total),
		})

		switch class {
		case ClassA:
			report.Distribution.A++
		case ClassB:
			report.Distribution.B++
		case ClassC:
			report.Distribution.C++
		case ClassD:
			report.Distribution.D++
		}
	}
	return report
}

func classify(score, percentile float64, p Params) VelocityClass {
	switch {
	case score == 0:
		return ClassD
	case percentile <= p.ClassABoundaryPercent:
		return ClassA
	case percentile <= p.ClassBBoundaryPercent:
		return ClassB
	default:
		return ClassC
	}
}

func slottingAction(class VelocityClass, location string, zones ZoneOrder) (SlottingAction, string) {
	rank, ok := zones(location)
	if !ok {
		return ActionKeep, "No zone recorded for location"
	}

	switch class {
	case ClassA:
		if rank > FrontZoneRank {
			return ActionMoveForward, "Fast mover stored away from the front"
		}
		return ActionKeep, "Fast mover already in the front zone"
	case ClassC, ClassD:
		if rank < BackZoneRank {
			if class == ClassD {
				return ActionMoveBack, "Deadstock occupying a prime slot"
			}
			return ActionMoveBack, "Slow mover occupying a prime slot"
		}
		if class == ClassD {
			return ActionKeep, "Deadstock already in the back zone"
		}
		return ActionKeep, "Slow mover already in the back zone"
	}
	return ActionKeep, "Medium mover"
}
