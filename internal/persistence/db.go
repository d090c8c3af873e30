// Package persistence is the relational layer: indicator definitions
// and time series, indicator events, source reputation with append-only
// history, and persisted business insights.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver
	"github.com/rs/zerolog"

	"newslens/internal/logger"
)

// Sentinels shared by the repositories.
var (
	ErrNotFound   = errors.New("persistence: not found")
	ErrStaleValue = errors.New("persistence: timestamp not after latest value")
)

const defaultQueryTimeout = 5 * time.Second

// DB bundles the connection pool and the repository set.
type DB struct {
	db  *sqlx.DB
	log zerolog.Logger

	definitions *IndicatorDefinitionRepo
	values      *IndicatorValueRepo
	events      *IndicatorEventRepo
	reputation  *SourceReputationRepo
	insights    *BusinessInsightRepo
}

// Open connects to Postgres, configures the pool and verifies the
// connection.
func Open(dsn string) (*DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewDB(db), nil
}

// NewDB wraps an existing pool. Tests hand in a sqlmock-backed pool.
func NewDB(db *sqlx.DB) *DB {
	d := &DB{db: db, log: logger.With("persistence")}
	d.definitions = &IndicatorDefinitionRepo{db: db}
	d.values = &IndicatorValueRepo{db: db}
	d.events = &IndicatorEventRepo{db: db}
	d.reputation = &SourceReputationRepo{db: db}
	d.insights = &BusinessInsightRepo{db: db}
	return d
}

func (d *DB) Definitions() *IndicatorDefinitionRepo { return d.definitions }
func (d *DB) Values() *IndicatorValueRepo           { return d.values }
func (d *DB) Events() *IndicatorEventRepo           { return d.events }
func (d *DB) Reputation() *SourceReputationRepo     { return d.reputation }
func (d *DB) Insights() *BusinessInsightRepo        { return d.insights }

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
