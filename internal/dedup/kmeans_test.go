package dedup

import (
	"math"
	"testing"
)

func TestTrainCentroidsDeterministic(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0.1, 0.9, 0}, {0, 0, 1}, {0, 0.1, 0.9},
	}
	for i := range vectors {
		vectors[i] = unit(vectors[i])
	}

	a := trainCentroids(vectors, 3, 25, 42)
	b := trainCentroids(vectors, 3, 25, 42)

	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("centroid counts = %d, %d, want 3", len(a), len(b))
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("same seed produced different centroids at [%d][%d]", i, j)
			}
		}
	}
}

func TestTrainCentroidsClampsK(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0, 1}, {-1, 0}}
	centroids := trainCentroids(vectors, 10, 25, 1)
	if len(centroids) != 3 {
		t.Errorf("centroids = %d, want clamped to 3", len(centroids))
	}
	if trainCentroids(nil, 4, 25, 1) != nil {
		t.Error("empty input should yield no centroids")
	}
}

func TestCentroidsStayUnit(t *testing.T) {
	vectors := make([][]float64, 0, 40)
	for i := 0; i < 40; i++ {
		v := []float64{float64(i%5) + 1, float64(i%7) + 1, float64(i%3) + 1}
		vectors = append(vectors, unit(v))
	}
	for _, c := range trainCentroids(vectors, 4, 25, 9) {
		var sum float64
		for _, x := range c {
			sum += x * x
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("centroid norm^2 = %f, want 1", sum)
		}
	}
}

func TestNearestCentroidsOrder(t *testing.T) {
	centroids := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	query := unit([]float64{0.1, 1, 0.2})

	got := nearestCentroids(query, centroids, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != 1 {
		t.Errorf("closest centroid = %d, want 1", got[0])
	}
	if got[0] != nearestCentroid(query, centroids) {
		t.Error("nearestCentroids[0] must agree with nearestCentroid")
	}

	if n := len(nearestCentroids(query, centroids, 10)); n != 3 {
		t.Errorf("n should clamp to centroid count, got %d", n)
	}
}
