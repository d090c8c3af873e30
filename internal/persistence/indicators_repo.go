package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"newslens/internal/core"
)

// IndicatorDefinitionRepo stores the indicator catalog.
type IndicatorDefinitionRepo struct {
	db *sqlx.DB
}

// Upsert writes or replaces one definition.
func (r *IndicatorDefinitionRepo) Upsert(ctx context.Context, def core.IndicatorDefinition) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO indicator_definitions
			(indicator_id, indicator_name, pestel_category, description, keywords,
			 calculation_type, base_weight, warning_low, warning_high, components,
			 is_active, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (indicator_id) DO UPDATE SET
			indicator_name = EXCLUDED.indicator_name,
			pestel_category = EXCLUDED.pestel_category,
			description = EXCLUDED.description,
			keywords = EXCLUDED.keywords,
			calculation_type = EXCLUDED.calculation_type,
			base_weight = EXCLUDED.base_weight,
			warning_low = EXCLUDED.warning_low,
			warning_high = EXCLUDED.warning_high,
			components = EXCLUDED.components,
			is_active = EXCLUDED.is_active,
			version = EXCLUDED.version`,
		def.ID, def.Name, string(def.Category), def.Description, pq.Array(def.Keywords),
		string(def.CalculationType), def.BaseWeight, def.Thresholds.Low,
		def.Thresholds.High, pq.Array(def.Components), def.Active, def.Version)
	if err != nil {
		return fmt.Errorf("upsert definition %s: %w", def.ID, err)
	}
	return nil
}

// Get loads one definition.
func (r *IndicatorDefinitionRepo) Get(ctx context.Context, id string) (*core.IndicatorDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, `
		SELECT indicator_id, indicator_name, pestel_category, description, keywords,
		       calculation_type, base_weight, warning_low, warning_high, components,
		       is_active, version
		FROM indicator_definitions WHERE indicator_id = $1`, id)
	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get definition %s: %w", id, err)
	}
	return def, nil
}

// ListActive returns every active definition ordered by id.
func (r *IndicatorDefinitionRepo) ListActive(ctx context.Context) ([]core.IndicatorDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT indicator_id, indicator_name, pestel_category, description, keywords,
		       calculation_type, base_weight, warning_low, warning_high, components,
		       is_active, version
		FROM indicator_definitions WHERE is_active ORDER BY indicator_id`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var out []core.IndicatorDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		out = append(out, *def)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*core.IndicatorDefinition, error) {
	var def core.IndicatorDefinition
	var category, calc string
	var keywords, components pq.StringArray
	err := row.Scan(&def.ID, &def.Name, &category, &def.Description, &keywords,
		&calc, &def.BaseWeight, &def.Thresholds.Low, &def.Thresholds.High,
		&components, &def.Active, &def.Version)
	if err != nil {
		return nil, err
	}
	def.Category = core.PESTELCategory(category)
	def.CalculationType = core.CalculationType(calc)
	def.Keywords = []string(keywords)
	def.Components = []string(components)
	return &def, nil
}

// IndicatorValueRepo stores the append-only indicator time series.
type IndicatorValueRepo struct {
	db *sqlx.DB
}

// Insert appends one observation. A timestamp at or before the
// indicator's newest stored value returns ErrStaleValue.
func (r *IndicatorValueRepo) Insert(ctx context.Context, v core.IndicatorValue) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO indicator_values
			(indicator_id, ts, value, confidence, article_count, raw_count,
			 sentiment_score, source_articles, computed_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM indicator_values WHERE indicator_id = $1 AND ts >= $2
		)`,
		v.IndicatorID, v.Timestamp, v.Value, v.Confidence, v.ArticleCount,
		v.RawCount, v.SentimentScore, pq.Array(v.SourceArticles), v.ComputedAt)
	if err != nil {
		return fmt.Errorf("insert value %s: %w", v.IndicatorID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert value %s: %w", v.IndicatorID, err)
	}
	if n == 0 {
		return ErrStaleValue
	}
	return nil
}

// Range returns the series for one indicator in [from, to], oldest first.
func (r *IndicatorValueRepo) Range(ctx context.Context, id string, from, to time.Time) ([]core.IndicatorValue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT indicator_id, ts, value, confidence, article_count, raw_count,
		       sentiment_score, source_articles, computed_at
		FROM indicator_values
		WHERE indicator_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC`, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", id, err)
	}
	defer rows.Close()

	var out []core.IndicatorValue
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Latest returns the newest observation for one indicator.
func (r *IndicatorValueRepo) Latest(ctx context.Context, id string) (*core.IndicatorValue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, `
		SELECT indicator_id, ts, value, confidence, article_count, raw_count,
		       sentiment_score, source_articles, computed_at
		FROM indicator_values
		WHERE indicator_id = $1 ORDER BY ts DESC LIMIT 1`, id)
	v, err := scanValue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest %s: %w", id, err)
	}
	return v, nil
}

func scanValue(row rowScanner) (*core.IndicatorValue, error) {
	var v core.IndicatorValue
	var articles pq.StringArray
	err := row.Scan(&v.IndicatorID, &v.Timestamp, &v.Value, &v.Confidence,
		&v.ArticleCount, &v.RawCount, &v.SentimentScore, &articles, &v.ComputedAt)
	if err != nil {
		return nil, err
	}
	v.SourceArticles = []string(articles)
	return &v, nil
}

// IndicatorEventRepo stores indicator excursions.
type IndicatorEventRepo struct {
	db *sqlx.DB
}

// Insert writes one event.
func (r *IndicatorEventRepo) Insert(ctx context.Context, e core.IndicatorEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO indicator_events
			(event_id, indicator_id, ts, event_type, severity, value_before,
			 value_after, acknowledged, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.IndicatorID, e.Timestamp, string(e.EventType), e.Severity,
		e.ValueBefore, e.ValueAfter, e.Acknowledged, e.Description)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns events since a cutoff, newest first.
func (r *IndicatorEventRepo) Recent(ctx context.Context, since time.Time, limit int) ([]core.IndicatorEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryxContext(ctx, `
		SELECT event_id, indicator_id, ts, event_type, severity, value_before,
		       value_after, acknowledged, description
		FROM indicator_events
		WHERE ts >= $1 ORDER BY ts DESC LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var out []core.IndicatorEvent
	for rows.Next() {
		var e core.IndicatorEvent
		var eventType string
		if err := rows.Scan(&e.ID, &e.IndicatorID, &e.Timestamp, &eventType,
			&e.Severity, &e.ValueBefore, &e.ValueAfter, &e.Acknowledged, &e.Description); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.EventType = core.IndicatorEventType(eventType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Acknowledge marks one event as handled.
func (r *IndicatorEventRepo) Acknowledge(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE indicator_events SET acknowledged = TRUE WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("acknowledge %s: %w", eventID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
