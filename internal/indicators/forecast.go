package indicators

import (
	"math"
	"time"

	"newslens/internal/core"
)

// Forecast tuning.
const (
	confidenceDecayPerDay = 0.06
	intervalZ             = 1.96 // 95% interval
	backtestFraction      = 0.30
	wmaDamping            = 0.8
	minForecastPoints     = 7
)

var (
	sesAlphaGrid  = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	holtAlphaGrid = []float64{0.2, 0.4, 0.6, 0.8}
	holtBetaGrid  = []float64{0.1, 0.2, 0.3, 0.5}
)

// model projects a fitted series h steps ahead.
type model interface {
	method() core.ForecastMethod
	fit(ys []float64)
	predict(h int) float64
}

// Forecast runs the four-model ensemble over a series and projects
// horizon daily points. Fewer than minForecastPoints observations yields
// nil: no forecast beats a fabricated one.
func Forecast(indicatorID string, series []core.IndicatorValue, horizon int, now time.Time) []core.ForecastPoint {
	if horizon <= 0 || len(series) < minForecastPoints {
		return nil
	}
	if now.IsZero() {
		now = time.Now()
	}
	ys := make([]float64, len(series))
	for i, v := range series {
		ys[i] = v.Value
	}

	models := []model{
		&linearModel{},
		&sesModel{},
		&holtModel{},
		&wmaModel{},
	}

	weights, quality := backtestWeights(models, ys)
	for _, m := range models {
		m.fit(ys)
	}

	residSD := ensembleResidualSD(models, weights, ys)

	points := make([]core.ForecastPoint, 0, horizon)
	for h := 1; h <= horizon; h++ {
		preds := make([]float64, len(models))
		var forecast float64
		for i, m := range models {
			preds[i] = clip100(m.predict(h))
			forecast += weights[i] * preds[i]
		}
		forecast = clip100(forecast)

		spread := intervalZ * math.Sqrt(float64(h)) * residSD
		decay := 1 - confidenceDecayPerDay*float64(h)
		if decay < 0 {
			decay = 0
		}
		conf := agreement(preds) * quality * decay
		// Confidence never recovers with horizon, whatever the models'
		// momentary agreement does.
		if len(points) > 0 && conf > points[len(points)-1].Confidence {
			conf = points[len(points)-1].Confidence
		}

		points = append(points, core.ForecastPoint{
			IndicatorID: indicatorID,
			DaysAhead:   h,
			Date:        now.Add(time.Duration(h) * 24 * time.Hour),
			Forecast:    forecast,
			Lower:       clip100(forecast - spread),
			Upper:       clip100(forecast + spread),
			Confidence:  conf,
			Method:      core.ForecastEnsemble,
		})
	}
	return points
}

// ModelQuality reports the ensemble's walk-forward backtest score on a
// series, in [0,1].
func ModelQuality(series []core.IndicatorValue) float64 {
	if len(series) < minForecastPoints {
		return 0
	}
	ys := make([]float64, len(series))
	for i, v := range series {
		ys[i] = v.Value
	}
	models := []model{&linearModel{}, &sesModel{}, &holtModel{}, &wmaModel{}}
	_, quality := backtestWeights(models, ys)
	return quality
}

// backtestWeights walk-forward backtests each model on the last 30% of
// the series and converts per-model MSE into inverse-MSE ensemble
// weights, plus an overall quality score.
func backtestWeights(models []model, ys []float64) ([]float64, float64) {
	n := len(ys)
	holdout := int(float64(n) * backtestFraction)
	if holdout < 2 {
		holdout = 2
	}
	trainEnd := n - holdout

	mses := make([]float64, len(models))
	counts := 0
	for cut := trainEnd; cut < n; cut++ {
		if cut < 3 {
			continue
		}
		train := ys[:cut]
		actual := ys[cut]
		for i, m := range models {
			m.fit(train)
			err := m.predict(1) - actual
			mses[i] += err * err
		}
		counts++
	}

	weights := make([]float64, len(models))
	if counts == 0 {
		for i := range weights {
			weights[i] = 1 / float64(len(models))
		}
		return weights, 0.5
	}

	var invSum, minMSE float64
	minMSE = math.MaxFloat64
	for i := range mses {
		mses[i] /= float64(counts)
		if mses[i] < minMSE {
			minMSE = mses[i]
		}
	}
	inv := make([]float64, len(mses))
	for i, mse := range mses {
		inv[i] = 1 / (mse + 1e-6)
		invSum += inv[i]
	}
	for i := range weights {
		weights[i] = inv[i] / invSum
	}

	// Quality: RMSE of the best model mapped onto [0,1]; an error of 10
	// points or more reads as unusable.
	rmse := math.Sqrt(minMSE)
	quality := 1 - rmse/10
	if quality < 0 {
		quality = 0
	}
	return weights, quality
}

// agreement maps model spread onto [0,1]; identical predictions score 1.
func agreement(preds []float64) float64 {
	var mean float64
	for _, p := range preds {
		mean += p
	}
	mean /= float64(len(preds))
	var ss float64
	for _, p := range preds {
		ss += (p - mean) * (p - mean)
	}
	sd := math.Sqrt(ss / float64(len(preds)))
	a := 1 - sd/10
	if a < 0 {
		a = 0
	}
	return a
}

func ensembleResidualSD(models []model, weights []float64, ys []float64) float64 {
	if len(ys) < 4 {
		return 0
	}
	var ss float64
	n := 0
	for cut := 3; cut < len(ys); cut++ {
		var pred float64
		for i, m := range models {
			m.fit(ys[:cut])
			pred += weights[i] * m.predict(1)
		}
		err := pred - ys[cut]
		ss += err * err
		n++
	}
	if n == 0 {
		return 0
	}
	// Refit on the full series for prediction use afterwards.
	for _, m := range models {
		m.fit(ys)
	}
	return math.Sqrt(ss / float64(n))
}

// linearModel projects the OLS fit forward.
type linearModel struct {
	slope, intercept float64
	n                int
}

func (m *linearModel) method() core.ForecastMethod { return core.ForecastLinear }

func (m *linearModel) fit(ys []float64) {
	xs := make([]float64, len(ys))
	for i := range ys {
		xs[i] = float64(i)
	}
	m.slope, m.intercept, _ = olsFit(xs, ys)
	m.n = len(ys)
}

func (m *linearModel) predict(h int) float64 {
	return m.intercept + m.slope*float64(m.n-1+h)
}

// sesModel is simple exponential smoothing with alpha selected by
// in-sample one-step MSE.
type sesModel struct {
	level float64
}

func (m *sesModel) method() core.ForecastMethod { return core.ForecastExpSmooth }

func (m *sesModel) fit(ys []float64) {
	bestMSE := math.MaxFloat64
	for _, alpha := range sesAlphaGrid {
		level := ys[0]
		var mse float64
		for i := 1; i < len(ys); i++ {
			err := ys[i] - level
			mse += err * err
			level = alpha*ys[i] + (1-alpha)*level
		}
		mse /= float64(len(ys))
		if mse < bestMSE {
			bestMSE = mse
			m.level = level
		}
	}
}

func (m *sesModel) predict(int) float64 { return m.level }

// holtModel adds a smoothed trend term, alpha and beta jointly selected
// by in-sample MSE.
type holtModel struct {
	level, trend float64
}

func (m *holtModel) method() core.ForecastMethod { return core.ForecastHoltLinear }

func (m *holtModel) fit(ys []float64) {
	if len(ys) < 2 {
		m.level, m.trend = ys[0], 0
		return
	}
	bestMSE := math.MaxFloat64
	for _, alpha := range holtAlphaGrid {
		for _, beta := range holtBetaGrid {
			level := ys[0]
			trend := ys[1] - ys[0]
			var mse float64
			for i := 1; i < len(ys); i++ {
				pred := level + trend
				err := ys[i] - pred
				mse += err * err
				prevLevel := level
				level = alpha*ys[i] + (1-alpha)*(level+trend)
				trend = beta*(level-prevLevel) + (1-beta)*trend
			}
			mse /= float64(len(ys))
			if mse < bestMSE {
				bestMSE = mse
				m.level, m.trend = level, trend
			}
		}
	}
}

func (m *holtModel) predict(h int) float64 { return m.level + float64(h)*m.trend }

// wmaModel is a recency-weighted moving average with a dampened trend
// extension.
type wmaModel struct {
	base, trend float64
}

func (m *wmaModel) method() core.ForecastMethod { return core.ForecastWeightedAvg }

func (m *wmaModel) fit(ys []float64) {
	window := 7
	if len(ys) < window {
		window = len(ys)
	}
	tail := ys[len(ys)-window:]
	var sum, weightSum float64
	for i, y := range tail {
		w := float64(i + 1)
		sum += y * w
		weightSum += w
	}
	m.base = sum / weightSum
	if window >= 2 {
		m.trend = (tail[window-1] - tail[0]) / float64(window-1)
	}
}

func (m *wmaModel) predict(h int) float64 {
	// Dampen the trend geometrically so long horizons flatten out.
	var extension float64
	damp := 1.0
	for i := 0; i < h; i++ {
		damp *= wmaDamping
		extension += m.trend * damp
	}
	return m.base + extension
}
