// Package embed produces the fixed-width vectors the dedup index searches.
// Two backends exist: a remote Gemini embedder and a deterministic local
// feature-hashing embedder used offline and in tests.
package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDimensions is the vector width used across the pipeline. The
// Gemini backend truncates to this via Matryoshka output dimensionality.
const DefaultDimensions = 384

// Embedder turns text into unit-length vectors of a fixed width.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
}

// Normalize scales v to unit L2 length in place and returns it. The zero
// vector is returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Cosine returns the cosine similarity of two equal-width vectors. For
// unit vectors this is the plain dot product.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Combine returns the normalized weighted sum wa*a + wb*b.
func Combine(a, b []float64, wa, wb float64) []float64 {
	if len(a) != len(b) {
		return nil
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = wa*a[i] + wb*b[i]
	}
	return Normalize(out)
}

// Local is a deterministic feature-hashing embedder. Tokens and token
// bigrams are hashed into a signed bag-of-features vector, then normalized.
// It has no notion of semantics beyond lexical overlap but is stable,
// dependency-free and fast, which is what the offline path needs.
type Local struct {
	dims int
}

// NewLocal builds a local embedder with the given width.
func NewLocal(dims int) *Local {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Local{dims: dims}
}

func (l *Local) Dimensions() int { return l.dims }

func (l *Local) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, l.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		addFeature(vec, tok)
		if i+1 < len(tokens) {
			addFeature(vec, tok+" "+tokens[i+1])
		}
	}
	return Normalize(vec), nil
}

func (l *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := l.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding item %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// addFeature hashes the feature into a bucket, with an independent hash bit
// deciding the sign so collisions tend to cancel rather than pile up.
func addFeature(vec []float64, feature string) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(len(vec)))
	if (sum>>63)&1 == 1 {
		vec[bucket] -= 1
	} else {
		vec[bucket] += 1
	}
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}
