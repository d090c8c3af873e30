package dedup

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newslens/internal/core"
	"newslens/internal/kv"
	"newslens/internal/logger"
)

const clusterTTL = 7 * 24 * time.Hour

// ClusterManager owns duplicate-cluster membership. Every mutation of one
// cluster is serialized behind a per-cluster lock and re-elects exactly one
// primary before returning. Clusters are mirrored to the KV store so the
// read API can inspect them.
type ClusterManager struct {
	mu        sync.Mutex
	clusters  map[string]*core.DuplicateCluster
	clusterOf map[string]string // articleID -> clusterID
	locks     map[string]*sync.Mutex

	store kv.Store
	log   zerolog.Logger
}

// NewClusterManager builds an empty manager. store may be nil in tests.
func NewClusterManager(store kv.Store) *ClusterManager {
	return &ClusterManager{
		clusters:  make(map[string]*core.DuplicateCluster),
		clusterOf: make(map[string]string),
		locks:     make(map[string]*sync.Mutex),
		store:     store,
		log:       logger.With("clusters"),
	}
}

func (m *ClusterManager) lockCluster(clusterID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[clusterID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[clusterID] = l
	}
	return l
}

// ClusterOf returns the cluster an article belongs to, if any.
func (m *ClusterManager) ClusterOf(articleID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.clusterOf[articleID]
	return id, ok
}

// Get returns a snapshot copy of a cluster. The copy is made under the
// per-cluster lock so a concurrent Add or Merge cannot mutate Members
// mid-read.
func (m *ClusterManager) Get(clusterID string) (core.DuplicateCluster, bool) {
	m.mu.Lock()
	_, known := m.clusters[clusterID]
	m.mu.Unlock()
	if !known {
		return core.DuplicateCluster{}, false
	}

	l := m.lockCluster(clusterID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	c, ok := m.clusters[clusterID]
	m.mu.Unlock()
	if !ok {
		return core.DuplicateCluster{}, false
	}
	snap := *c
	snap.Members = append([]core.ClusterMember(nil), c.Members...)
	return snap, true
}

// Create starts a new cluster from the matched pair and returns its id.
func (m *ClusterManager) Create(ctx context.Context, topic string, a, b core.ClusterMember) string {
	clusterID := uuid.NewString()
	now := time.Now()
	cluster := &core.DuplicateCluster{
		ClusterID:    clusterID,
		TopicSummary: topic,
		Members:      []core.ClusterMember{a, b},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	electPrimary(cluster, now)

	m.mu.Lock()
	m.clusters[clusterID] = cluster
	m.clusterOf[a.ArticleID] = clusterID
	m.clusterOf[b.ArticleID] = clusterID
	m.mu.Unlock()

	m.persist(ctx, cluster)
	return clusterID
}

// Add appends a member to an existing cluster and re-elects the primary.
// Adding an article twice is a no-op.
func (m *ClusterManager) Add(ctx context.Context, clusterID string, member core.ClusterMember) bool {
	l := m.lockCluster(clusterID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	cluster, ok := m.clusters[clusterID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	if _, exists := cluster.Member(member.ArticleID); exists {
		return true
	}
	cluster.Members = append(cluster.Members, member)
	electPrimary(cluster, time.Now())

	m.mu.Lock()
	m.clusterOf[member.ArticleID] = clusterID
	m.mu.Unlock()

	m.persist(ctx, cluster)
	return true
}

// Merge folds the absorbed cluster's members into the kept cluster,
// de-duplicated by article, and re-elects a single primary across the
// union. The absorbed cluster is dropped.
func (m *ClusterManager) Merge(ctx context.Context, keepID, absorbID string) bool {
	if keepID == absorbID {
		return true
	}
	// Lock order by id to avoid deadlock between concurrent merges.
	first, second := keepID, absorbID
	if second < first {
		first, second = second, first
	}
	l1, l2 := m.lockCluster(first), m.lockCluster(second)
	l1.Lock()
	defer l1.Unlock()
	l2.Lock()
	defer l2.Unlock()

	m.mu.Lock()
	keep, ok1 := m.clusters[keepID]
	absorb, ok2 := m.clusters[absorbID]
	m.mu.Unlock()
	if !ok1 || !ok2 {
		return false
	}

	for _, member := range absorb.Members {
		if _, exists := keep.Member(member.ArticleID); !exists {
			member.IsPrimary = false
			keep.Members = append(keep.Members, member)
		}
	}
	electPrimary(keep, time.Now())

	m.mu.Lock()
	for _, member := range absorb.Members {
		m.clusterOf[member.ArticleID] = keepID
	}
	delete(m.clusters, absorbID)
	delete(m.locks, absorbID)
	m.mu.Unlock()

	m.persist(ctx, keep)
	if m.store != nil {
		if err := m.store.Del(ctx, "cluster:"+absorbID); err != nil {
			m.log.Warn().Err(err).Str("cluster", absorbID).Msg("dropping absorbed cluster from kv failed")
		}
	}
	return true
}

func (m *ClusterManager) persist(ctx context.Context, cluster *core.DuplicateCluster) {
	if m.store == nil {
		return
	}
	if err := kv.SetJSON(ctx, m.store, "cluster:"+cluster.ClusterID, cluster, clusterTTL); err != nil {
		m.log.Warn().Err(err).Str("cluster", cluster.ClusterID).Msg("mirroring cluster to kv failed")
	}
}

// electPrimary scores every member and marks exactly one primary. The
// score rewards credible sources, longer copies and recency:
// credibility*40 + word_ratio*30 + max(0, 30 - age_hours*2).
func electPrimary(cluster *core.DuplicateCluster, now time.Time) {
	if len(cluster.Members) == 0 {
		cluster.PrimaryID = ""
		return
	}

	maxWords := 1
	for _, m := range cluster.Members {
		if m.WordCount > maxWords {
			maxWords = m.WordCount
		}
	}

	bestIdx, bestScore := 0, -1.0
	for i, m := range cluster.Members {
		ageHours := now.Sub(m.ScrapedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		recency := 30 - ageHours*2
		if recency < 0 {
			recency = 0
		}
		score := m.Credibility*40 + float64(m.WordCount)/float64(maxWords)*30 + recency
		if score > bestScore || (score == bestScore && m.ArticleID < cluster.Members[bestIdx].ArticleID) {
			bestScore = score
			bestIdx = i
		}
	}

	seen := make(map[string]struct{})
	for i := range cluster.Members {
		cluster.Members[i].IsPrimary = i == bestIdx
		seen[cluster.Members[i].SourceID] = struct{}{}
	}
	cluster.PrimaryID = cluster.Members[bestIdx].ArticleID
	cluster.UniqueSources = len(seen)
	cluster.UpdatedAt = now
	sortMembers(cluster)
}

// sortMembers keeps the member list deterministic: primary first, then
// newest scrape first.
func sortMembers(cluster *core.DuplicateCluster) {
	sort.SliceStable(cluster.Members, func(i, j int) bool {
		a, b := cluster.Members[i], cluster.Members[j]
		if a.IsPrimary != b.IsPrimary {
			return a.IsPrimary
		}
		return a.ScrapedAt.After(b.ScrapedAt)
	})
}
