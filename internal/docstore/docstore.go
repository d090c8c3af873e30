// Package docstore persists unstructured payloads (raw article bodies,
// enrichment features, insight narratives and reasoning) in an embedded
// Badger store, queried by article or insight id.
package docstore

import (
	"errors"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/timshannon/badgerhold/v4"

	"newslens/internal/core"
	"newslens/internal/logger"
)

// ErrNotFound is returned when no document matches the key.
var ErrNotFound = errors.New("docstore: not found")

// ArticleDoc holds the raw scraped body and headers for one article.
type ArticleDoc struct {
	ArticleID string `badgerhold:"key"`
	SourceID  string `badgerholdIndex:"SourceID"`
	Title     string
	Body      string
	Headers   map[string]string
	StoredAt  time.Time
}

// EnrichmentDoc holds the full enrichment payload for one article.
type EnrichmentDoc struct {
	ArticleID string `badgerhold:"key"`
	Payload   core.EnrichedArticle
	StoredAt  time.Time
}

// NarrativeDoc holds a generated narrative plus its reasoning trail.
type NarrativeDoc struct {
	InsightID string `badgerhold:"key"`
	CompanyID string `badgerholdIndex:"CompanyID"`
	Kind      string // risk | opportunity
	Narrative string
	Reasoning map[string]any
	StoredAt  time.Time
}

// Store is the embedded document store.
type Store struct {
	db  *badgerhold.Store
	log zerolog.Logger
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create docstore directory: %w", err)
	}
	options := badgerhold.DefaultOptions
	// Badger's default logger is chatty at INFO; keep it quiet and let
	// the store log through the process logger.
	options.Options = badger.DefaultOptions(path).WithLogger(nil)

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open docstore: %w", err)
	}
	return &Store{db: db, log: logger.With("docstore")}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveArticle stores the raw body of a scraped article.
func (s *Store) SaveArticle(article *core.RawArticle) error {
	if article == nil || article.ArticleID == "" {
		return fmt.Errorf("article id is required")
	}
	doc := ArticleDoc{
		ArticleID: article.ArticleID,
		SourceID:  article.SourceID,
		Title:     article.Title,
		Body:      article.Body,
		Headers:   article.RawHeaders,
		StoredAt:  time.Now().UTC(),
	}
	if err := s.db.Upsert(doc.ArticleID, &doc); err != nil {
		return fmt.Errorf("save article %s: %w", doc.ArticleID, err)
	}
	return nil
}

// GetArticle loads a stored raw article body.
func (s *Store) GetArticle(articleID string) (*ArticleDoc, error) {
	var doc ArticleDoc
	if err := s.db.Get(articleID, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article %s: %w", articleID, err)
	}
	return &doc, nil
}

// ArticlesBySource lists stored articles for one source, newest first.
func (s *Store) ArticlesBySource(sourceID string, limit int) ([]ArticleDoc, error) {
	var docs []ArticleDoc
	q := badgerhold.Where("SourceID").Eq(sourceID).Index("SourceID")
	if err := s.db.Find(&docs, q); err != nil {
		return nil, fmt.Errorf("find articles for %s: %w", sourceID, err)
	}
	for i := 0; i < len(docs)/2; i++ {
		docs[i], docs[len(docs)-1-i] = docs[len(docs)-1-i], docs[i]
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// SaveEnrichment stores the enrichment payload for an article.
func (s *Store) SaveEnrichment(enriched *core.EnrichedArticle) error {
	if enriched == nil || enriched.ArticleID == "" {
		return fmt.Errorf("article id is required")
	}
	doc := EnrichmentDoc{
		ArticleID: enriched.ArticleID,
		Payload:   *enriched,
		StoredAt:  time.Now().UTC(),
	}
	if err := s.db.Upsert(doc.ArticleID, &doc); err != nil {
		return fmt.Errorf("save enrichment %s: %w", doc.ArticleID, err)
	}
	return nil
}

// GetEnrichment loads the enrichment payload for an article.
func (s *Store) GetEnrichment(articleID string) (*core.EnrichedArticle, error) {
	var doc EnrichmentDoc
	if err := s.db.Get(articleID, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get enrichment %s: %w", articleID, err)
	}
	return &doc.Payload, nil
}

// SaveNarrative stores a narrative document for one insight.
func (s *Store) SaveNarrative(doc NarrativeDoc) error {
	if doc.InsightID == "" {
		return fmt.Errorf("insight id is required")
	}
	doc.StoredAt = time.Now().UTC()
	if err := s.db.Upsert(doc.InsightID, &doc); err != nil {
		return fmt.Errorf("save narrative %s: %w", doc.InsightID, err)
	}
	return nil
}

// GetNarrative loads the narrative for one insight.
func (s *Store) GetNarrative(insightID string) (*NarrativeDoc, error) {
	var doc NarrativeDoc
	if err := s.db.Get(insightID, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get narrative %s: %w", insightID, err)
	}
	return &doc, nil
}

// NarrativesForCompany lists every stored narrative for a company.
func (s *Store) NarrativesForCompany(companyID string) ([]NarrativeDoc, error) {
	var docs []NarrativeDoc
	q := badgerhold.Where("CompanyID").Eq(companyID).Index("CompanyID")
	if err := s.db.Find(&docs, q); err != nil {
		return nil, fmt.Errorf("find narratives for %s: %w", companyID, err)
	}
	return docs, nil
}

// DeleteArticle removes the raw body and enrichment for one article.
func (s *Store) DeleteArticle(articleID string) error {
	if err := s.db.Delete(articleID, &ArticleDoc{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delete article %s: %w", articleID, err)
	}
	if err := s.db.Delete(articleID, &EnrichmentDoc{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delete enrichment %s: %w", articleID, err)
	}
	return nil
}
