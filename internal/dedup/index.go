package dedup

import (
	"sort"
	"sync"
	"time"
)

// Match is one similarity-search candidate, carrying enough metadata to
// build a cluster member without a second lookup.
type Match struct {
	ArticleID string
	SourceID  string
	Score     float64 // Inner product; cosine for unit vectors
	Words     int
	AddedAt   time.Time
}

type entry struct {
	articleID string
	sourceID  string
	vector    []float64 // Search-space vector from the active embedder
	localVec  []float64 // Deterministic lexical vector for the fallback scan
	words     int
	addedAt   time.Time
}

// IndexOptions sizes the rolling window and the approximate-search switch.
type IndexOptions struct {
	MaxVectors   int           // Evict oldest beyond this count
	Window       time.Duration // Evict entries older than this
	IVFThreshold int           // Train the coarse quantizer above this size
	Probes       int           // Inverted lists scanned per query
	RetrainAfter int           // Evictions tolerated before a rebuild
}

func (o IndexOptions) withDefaults() IndexOptions {
	if o.MaxVectors <= 0 {
		o.MaxVectors = 50000
	}
	if o.Window <= 0 {
		o.Window = 48 * time.Hour
	}
	if o.IVFThreshold <= 0 {
		o.IVFThreshold = 100000
	}
	if o.Probes <= 0 {
		o.Probes = 8
	}
	if o.RetrainAfter <= 0 {
		o.RetrainAfter = 100
	}
	return o
}

// VectorIndex is the single-writer similarity index behind deduplication.
// Below IVFThreshold entries it scans exactly; above, an inverted-file
// layout over k-means centroids bounds the scan to a few lists. Readers
// share an RWMutex; all mutation goes through Add and Sweep.
type VectorIndex struct {
	mu      sync.RWMutex
	opts    IndexOptions
	order   []string // Insertion order, oldest first
	entries map[string]*entry

	trained   bool
	centroids [][]float64
	lists     map[int][]string
	listOf    map[string]int
	evictions int
	seed      int64
}

// NewVectorIndex builds an empty index.
func NewVectorIndex(opts IndexOptions) *VectorIndex {
	return &VectorIndex{
		opts:    opts.withDefaults(),
		entries: make(map[string]*entry),
		listOf:  make(map[string]int),
		seed:    time.Now().UnixNano(),
	}
}

// Len reports the resident vector count.
func (ix *VectorIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Has reports whether an article is already indexed.
func (ix *VectorIndex) Has(articleID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entries[articleID]
	return ok
}

// Add inserts a vector, maintains the rolling window and trains or
// retrains the coarse quantizer as thresholds are crossed. Re-adding an
// existing article is a no-op.
func (ix *VectorIndex) Add(articleID, sourceID string, vector, localVec []float64, words int, at time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.entries[articleID]; ok {
		return
	}
	e := &entry{articleID: articleID, sourceID: sourceID, vector: vector, localVec: localVec, words: words, addedAt: at}
	ix.entries[articleID] = e
	ix.order = append(ix.order, articleID)
	if ix.trained {
		ix.assign(e)
	}

	ix.sweepLocked(at)

	if !ix.trained && len(ix.entries) >= ix.opts.IVFThreshold {
		ix.rebuildLocked()
	} else if ix.trained && ix.evictions >= ix.opts.RetrainAfter {
		ix.rebuildLocked()
	}
}

// Sweep evicts entries that have aged out of the window, without needing
// an insert to trigger it.
func (ix *VectorIndex) Sweep(now time.Time) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	before := len(ix.entries)
	ix.sweepLocked(now)
	if ix.trained && ix.evictions >= ix.opts.RetrainAfter {
		ix.rebuildLocked()
	}
	return before - len(ix.entries)
}

func (ix *VectorIndex) sweepLocked(now time.Time) {
	cutoff := now.Add(-ix.opts.Window)
	for len(ix.order) > 0 {
		oldest := ix.entries[ix.order[0]]
		if len(ix.order) <= ix.opts.MaxVectors && !oldest.addedAt.Before(cutoff) {
			break
		}
		ix.removeLocked(ix.order[0])
		ix.evictions++
	}
}

func (ix *VectorIndex) removeLocked(articleID string) {
	delete(ix.entries, articleID)
	if len(ix.order) > 0 && ix.order[0] == articleID {
		ix.order = ix.order[1:]
	} else {
		for i, id := range ix.order {
			if id == articleID {
				ix.order = append(ix.order[:i], ix.order[i+1:]...)
				break
			}
		}
	}
	if list, ok := ix.listOf[articleID]; ok {
		ids := ix.lists[list]
		for i, id := range ids {
			if id == articleID {
				ix.lists[list] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		delete(ix.listOf, articleID)
	}
}

func (ix *VectorIndex) assign(e *entry) {
	c := nearestCentroid(e.vector, ix.centroids)
	ix.lists[c] = append(ix.lists[c], e.articleID)
	ix.listOf[e.articleID] = c
}

// rebuildLocked retrains the quantizer from the resident vectors, or drops
// back to exact scanning when the index has shrunk below the threshold.
func (ix *VectorIndex) rebuildLocked() {
	ix.evictions = 0
	if len(ix.entries) < ix.opts.IVFThreshold {
		ix.trained = false
		ix.centroids = nil
		ix.lists = nil
		ix.listOf = make(map[string]int)
		return
	}

	k := int(float64(len(ix.entries)) * 0.001)
	if k < 16 {
		k = 16
	}
	if k > 256 {
		k = 256
	}

	vectors := make([][]float64, 0, len(ix.entries))
	for _, id := range ix.order {
		vectors = append(vectors, ix.entries[id].vector)
	}
	ix.centroids = trainCentroids(vectors, k, 25, ix.seed)
	ix.lists = make(map[int][]string, k)
	ix.listOf = make(map[string]int, len(ix.entries))
	for _, id := range ix.order {
		ix.assign(ix.entries[id])
	}
	ix.trained = true
}

// Search returns the top-k most similar entries, excluding excludeID.
func (ix *VectorIndex) Search(vector []float64, k int, excludeID string) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 {
		return nil
	}

	var candidates []string
	if ix.trained {
		for _, c := range nearestCentroids(vector, ix.centroids, ix.opts.Probes) {
			candidates = append(candidates, ix.lists[c]...)
		}
	} else {
		candidates = ix.order
	}

	matches := make([]Match, 0, len(candidates))
	for _, id := range candidates {
		if id == excludeID {
			continue
		}
		e := ix.entries[id]
		matches = append(matches, Match{
			ArticleID: id, SourceID: e.sourceID, Score: dot(vector, e.vector),
			Words: e.words, AddedAt: e.addedAt,
		})
	}
	return topK(matches, k)
}

// SearchLocal scans the deterministic lexical vectors. This is the
// fallback path when the active embedder is unavailable; it is exact and
// never fails.
func (ix *VectorIndex) SearchLocal(localVec []float64, k int, excludeID string) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := make([]Match, 0, len(ix.entries))
	for id, e := range ix.entries {
		if id == excludeID || e.localVec == nil {
			continue
		}
		matches = append(matches, Match{
			ArticleID: id, SourceID: e.sourceID, Score: dot(localVec, e.localVec),
			Words: e.words, AddedAt: e.addedAt,
		})
	}
	return topK(matches, k)
}

func topK(matches []Match, k int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ArticleID < matches[j].ArticleID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
