package intelligence

import "math"

// TrendDirection is the qualitative reading of a regression slope.
type TrendDirection string

const (
	TrendUp     TrendDirection = "UP"
	TrendDown   TrendDirection = "DOWN"
	TrendStable TrendDirection = "STABLE"
)

// TrendResult is a least-squares fit of a usage series against its index.
type TrendResult struct {
	Slope      float64        `json:"slope"`
	Intercept  float64        `json:"intercept"`
	RSquared   float64        `json:"r_squared"`
	Prediction float64        `json:"prediction"`
	Trend      TrendDirection `json:"trend"`
	GrowthRate float64        `json:"growth_rate"`
}

// EstimateTrend fits usage[i] = slope*i + intercept and forecasts the next period.
// slopeThreshold separates UP/DOWN from STABLE.
func EstimateTrend(usage []float64, slopeThreshold float64) TrendResult {
	n := len(usage)
	if n < 2 {
		res := TrendResult{Trend: TrendStable}
		if n == 1 {
			res.Prediction = math.Max(0, usage[0])
		}
		return res
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	slope, intercept := linearRegression(xs, usage)

	mean := 0.0
	for _, y := range usage {
		mean += y
	}
	mean /= float64(n)

	var ssTot, ssRes float64
	for i, y := range usage {
		fit := slope*xs[i] + intercept
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - mean) * (y - mean)
	}
	rSquared := 0.0
	if ssTot > 0 {
		rSquared = clamp(1-ssRes/ssTot, 0, 1)
	}

	growth := 0.0
	if mean != 0 {
		growth = slope / mean * 100
	}

	return TrendResult{
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   rSquared,
		Prediction: math.Max(0, slope*float64(n)+intercept),
		Trend:      classifySlope(slope, slopeThreshold),
		GrowthRate: growth,
	}
}

func classifySlope(slope, threshold float64) TrendDirection {
	switch {
	case slope > threshold:
		return TrendUp
	case slope < -threshold:
		return TrendDown
	default:
		return TrendStable
	}
}

// linearRegression computes slope and intercept for y = slope*x + intercept.
func linearRegression(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
	}

	denom := n*sumX2 - sumX*sumX
	if math.Abs(denom) < 1e-10 {
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
