package intelligence

import "math"

// SafetyStock sizes the buffer as ceil(z * sampleStdDev(usage) * sqrt(leadTimeDays)).
// Series shorter than two points carry no variance information and yield 0.
func SafetyStock(usage []float64, leadTimeDays int, z float64) int {
	if len(usage) < 2 || leadTimeDays <= 0 {
		return 0
	}
	sd := sampleStdDev(usage)
	if sd == 0 {
		return 0
	}
	return int(math.Ceil(z * sd * math.Sqrt(float64(leadTimeDays))))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(n-1))
}
