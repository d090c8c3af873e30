package indicators

import (
	"math"
	"time"

	"newslens/internal/core"
)

// Trend analysis thresholds.
const (
	DefaultTrendWindowDays = 30

	significanceP   = 0.05
	strongSlope     = 1.0 // points per day
	moderateSlope   = 0.3
	changePointZ    = 2.0
	rsiPeriod       = 14
	seasonalLag     = 7
	seasonalMinCorr = 0.4
)

// AnalyzeTrend runs regression, momentum and excursion analysis over one
// indicator's series. Values must be in ascending timestamp order; fewer
// than 5 points yields a stable, non-significant result.
func AnalyzeTrend(indicatorID string, series []core.IndicatorValue, windowDays int, now time.Time) core.TrendResult {
	if windowDays <= 0 {
		windowDays = DefaultTrendWindowDays
	}
	if now.IsZero() {
		now = time.Now()
	}
	res := core.TrendResult{
		IndicatorID: indicatorID,
		WindowDays:  windowDays,
		Direction:   core.TrendStable,
		PValue:      1,
		ComputedAt:  now,
	}

	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	var xs, ys []float64
	for _, v := range series {
		if v.Timestamp.Before(cutoff) {
			continue
		}
		xs = append(xs, v.Timestamp.Sub(cutoff).Hours()/24)
		ys = append(ys, v.Value)
	}
	if len(ys) < 5 {
		return res
	}

	slope, _, r2 := olsFit(xs, ys)
	res.Slope = slope
	res.RSquared = r2
	res.PValue = regressionP(r2, len(ys))
	res.Significant = res.PValue < significanceP
	res.Volatility = dailyChangeStddev(ys)
	res.Momentum = rsiMomentum(ys, rsiPeriod)
	res.Direction = classifyDirection(slope, r2, res.PValue, res.Momentum)
	res.ChangePoints = changePoints(series, cutoff)
	res.Seasonal = weeklySeasonality(ys)
	return res
}

// olsFit returns slope, intercept and r-squared of y over x.
func olsFit(xs, ys []float64) (slope, intercept, r2 float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i := range xs {
		pred := intercept + slope*xs[i]
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
		ssRes += (ys[i] - pred) * (ys[i] - pred)
	}
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return slope, intercept, r2
}

// regressionP approximates the slope's p-value from the t statistic of
// the correlation, using a normal tail approximation. Adequate for the
// n >= 5 series this layer sees.
func regressionP(r2 float64, n int) float64 {
	if n < 3 || r2 >= 1 {
		return 0
	}
	if r2 <= 0 {
		return 1
	}
	t := math.Sqrt(r2 * float64(n-2) / (1 - r2))
	// Two-sided normal tail.
	p := math.Erfc(t / math.Sqrt2)
	if p > 1 {
		p = 1
	}
	return p
}

func dailyChangeStddev(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	diffs := make([]float64, 0, len(ys)-1)
	var mean float64
	for i := 1; i < len(ys); i++ {
		d := ys[i] - ys[i-1]
		diffs = append(diffs, d)
		mean += d
	}
	mean /= float64(len(diffs))
	var ss float64
	for _, d := range diffs {
		ss += (d - mean) * (d - mean)
	}
	return math.Sqrt(ss / float64(len(diffs)))
}

// rsiMomentum computes RSI over the trailing period and recentres it
// from [0,100] to [-100,100].
func rsiMomentum(ys []float64, period int) float64 {
	if len(ys) < 2 {
		return 0
	}
	start := len(ys) - period - 1
	if start < 0 {
		start = 0
	}
	var gains, losses float64
	for i := start + 1; i < len(ys); i++ {
		d := ys[i] - ys[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if gains+losses == 0 {
		return 0
	}
	rsi := 100 * gains / (gains + losses)
	return (rsi - 50) * 2
}

// classifyDirection maps regression and momentum evidence onto the
// seven-level label.
func classifyDirection(slope, r2, p, momentum float64) core.TrendDirection {
	significant := p < significanceP && r2 >= 0.3
	switch {
	case slope >= strongSlope && significant && momentum > 40:
		return core.TrendStrongRising
	case slope >= moderateSlope && significant:
		return core.TrendRising
	case slope > 0 && (momentum > 20 || slope >= moderateSlope):
		return core.TrendWeakRising
	case slope <= -strongSlope && significant && momentum < -40:
		return core.TrendStrongFalling
	case slope <= -moderateSlope && significant:
		return core.TrendFalling
	case slope < 0 && (momentum < -20 || slope <= -moderateSlope):
		return core.TrendWeakFalling
	default:
		return core.TrendStable
	}
}

// changePoints flags day-over-day jumps whose z-score against the
// rolling change distribution exceeds the 2-sigma threshold.
func changePoints(series []core.IndicatorValue, cutoff time.Time) []core.ChangePoint {
	var windowed []core.IndicatorValue
	for _, v := range series {
		if !v.Timestamp.Before(cutoff) {
			windowed = append(windowed, v)
		}
	}
	if len(windowed) < 6 {
		return nil
	}
	diffs := make([]float64, len(windowed)-1)
	var mean float64
	for i := 1; i < len(windowed); i++ {
		diffs[i-1] = windowed[i].Value - windowed[i-1].Value
		mean += diffs[i-1]
	}
	mean /= float64(len(diffs))
	var ss float64
	for _, d := range diffs {
		ss += (d - mean) * (d - mean)
	}
	sd := math.Sqrt(ss / float64(len(diffs)))
	if sd == 0 {
		return nil
	}

	var points []core.ChangePoint
	for i, d := range diffs {
		z := (d - mean) / sd
		if math.Abs(z) >= changePointZ {
			points = append(points, core.ChangePoint{
				Date:   windowed[i+1].Timestamp,
				Value:  windowed[i+1].Value,
				ZScore: z,
			})
		}
	}
	return points
}

// weeklySeasonality checks autocorrelation at lag 7.
func weeklySeasonality(ys []float64) bool {
	if len(ys) < 2*seasonalLag {
		return false
	}
	var mean float64
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))

	var num, den float64
	for i := 0; i < len(ys); i++ {
		den += (ys[i] - mean) * (ys[i] - mean)
	}
	if den == 0 {
		return false
	}
	for i := seasonalLag; i < len(ys); i++ {
		num += (ys[i] - mean) * (ys[i-seasonalLag] - mean)
	}
	return num/den >= seasonalMinCorr
}
