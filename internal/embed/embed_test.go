package embed

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedDeterministic(t *testing.T) {
	e := NewLocal(DefaultDimensions)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Fuel shortage hits Colombo port operations")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := e.Embed(ctx, "Fuel shortage hits Colombo port operations")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at dim %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLocalEmbedUnitLength(t *testing.T) {
	e := NewLocal(DefaultDimensions)
	vec, err := e.Embed(context.Background(), "Central bank raises policy rates amid currency pressure")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != DefaultDimensions {
		t.Fatalf("expected %d dims, got %d", DefaultDimensions, len(vec))
	}

	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("expected unit vector, got squared norm %f", sum)
	}
}

func TestLocalEmbedSimilarTextCloser(t *testing.T) {
	e := NewLocal(DefaultDimensions)
	ctx := context.Background()

	base, _ := e.Embed(ctx, "Fuel shortage worsens across the country as queues grow")
	near, _ := e.Embed(ctx, "Fuel shortage worsens across the nation as queues lengthen")
	far, _ := e.Embed(ctx, "Cricket team announces new captain ahead of the tour")

	simNear := Cosine(base, near)
	simFar := Cosine(base, far)
	if simNear <= simFar {
		t.Errorf("expected near text more similar: near=%.3f far=%.3f", simNear, simFar)
	}
}

func TestCosineIdentity(t *testing.T) {
	v := []float64{0.6, 0.8}
	if got := Cosine(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("self similarity = %f, want 1.0", got)
	}
}

func TestCosineMismatchedWidths(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{1}); got != 0 {
		t.Errorf("mismatched widths should score 0, got %f", got)
	}
}

func TestCombineWeighted(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}

	out := Combine(a, b, 0.4, 0.6)
	if out == nil {
		t.Fatal("Combine returned nil")
	}

	// Result must be unit length and lean toward the heavier component.
	var sum float64
	for _, x := range out {
		sum += x * x
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("combined vector not normalized: squared norm %f", sum)
	}
	if out[1] <= out[0] {
		t.Errorf("expected body weight to dominate: %v", out)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float64{0, 0, 0}
	out := Normalize(v)
	for i, x := range out {
		if x != 0 {
			t.Fatalf("zero vector changed at %d: %f", i, x)
		}
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	e := NewLocal(64)
	ctx := context.Background()

	texts := []string{"power cut schedule announced", "tourism arrivals rebound"}
	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(batch))
	}

	single, _ := e.Embed(ctx, texts[1])
	if Cosine(batch[1], single) < 0.999 {
		t.Error("batch output does not match single embedding for same text")
	}
}
