package indicators

import (
	"math"
	"testing"
	"time"
)

func TestStableSeriesForecast(t *testing.T) {
	now := time.Now()
	start := now.Add(-30 * 24 * time.Hour)
	// 30 days oscillating around 50 with bounded noise (sigma ~ 5).
	values := make([]float64, 30)
	for i := range values {
		values[i] = 50 + 5*math.Sin(float64(i)*1.3)
	}
	series := dailySeries("X", start, values)

	points := Forecast("X", series, 7, now)
	if len(points) != 7 {
		t.Fatalf("got %d points, want 7", len(points))
	}
	if d := math.Abs(points[0].Forecast - 50); d > 5 {
		t.Fatalf("day-1 forecast %.2f deviates %.2f from 50, want <= 5", points[0].Forecast, d)
	}
	if q := ModelQuality(series); q < 0.5 {
		t.Fatalf("model quality = %.2f, want >= 0.5 on a stable series", q)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Confidence > points[i-1].Confidence {
			t.Fatalf("confidence rose from day %d to %d (%.3f -> %.3f)",
				i, i+1, points[i-1].Confidence, points[i].Confidence)
		}
	}
}

func TestForecastIntervalWidens(t *testing.T) {
	now := time.Now()
	start := now.Add(-30 * 24 * time.Hour)
	values := make([]float64, 30)
	for i := range values {
		values[i] = 45 + 3*math.Sin(float64(i)*0.7) + float64(i%3)
	}
	points := Forecast("X", dailySeries("X", start, values), 10, now)
	if len(points) == 0 {
		t.Fatal("no forecast produced")
	}
	first := points[0].Upper - points[0].Lower
	last := points[len(points)-1].Upper - points[len(points)-1].Lower
	if last < first {
		t.Fatalf("interval narrowed with horizon: day1 %.2f vs day10 %.2f", first, last)
	}
}

func TestForecastTracksTrend(t *testing.T) {
	now := time.Now()
	start := now.Add(-20 * 24 * time.Hour)
	values := make([]float64, 20)
	for i := range values {
		values[i] = 40 + float64(i) // +1/day
	}
	points := Forecast("X", dailySeries("X", start, values), 5, now)
	if len(points) != 5 {
		t.Fatalf("got %d points", len(points))
	}
	// Last observation is 59; a competent ensemble projects above it.
	if points[2].Forecast <= 59 {
		t.Fatalf("day-3 forecast %.2f does not continue the rise", points[2].Forecast)
	}
	if points[4].Forecast < points[0].Forecast {
		t.Fatalf("rising series forecast fell: day1 %.2f day5 %.2f", points[0].Forecast, points[4].Forecast)
	}
}

func TestForecastClipsToScale(t *testing.T) {
	now := time.Now()
	start := now.Add(-15 * 24 * time.Hour)
	values := make([]float64, 15)
	for i := range values {
		values[i] = 80 + float64(i)*2 // would exceed 100 if unclipped
	}
	for _, p := range Forecast("X", dailySeries("X", start, values), 10, now) {
		if p.Forecast > 100 || p.Upper > 100 || p.Lower < 0 {
			t.Fatalf("unclipped point %+v", p)
		}
	}
}

func TestShortSeriesNoForecast(t *testing.T) {
	now := time.Now()
	if got := Forecast("X", dailySeries("X", now, []float64{50, 51, 52}), 7, now); got != nil {
		t.Fatalf("3-point series produced %d forecast points", len(got))
	}
}
