package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"newslens/internal/core"
)

// SourceReputationRepo persists reputation snapshots plus the
// append-only history sub-table. Snapshot and history always move
// together inside one transaction.
type SourceReputationRepo struct {
	db *sqlx.DB
}

// Save upserts the snapshot row and appends one history point.
func (r *SourceReputationRepo) Save(ctx context.Context, rep core.SourceReputation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reputation tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO source_reputation
			(source_id, tier, reputation_score, quality_score, accepted_count,
			 rejected_count, auto_disabled, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			reputation_score = EXCLUDED.reputation_score,
			quality_score = EXCLUDED.quality_score,
			accepted_count = EXCLUDED.accepted_count,
			rejected_count = EXCLUDED.rejected_count,
			auto_disabled = EXCLUDED.auto_disabled,
			last_updated = EXCLUDED.last_updated`,
		rep.SourceID, string(rep.Tier), rep.ReputationScore, rep.QualityScore,
		rep.AcceptedCount, rep.RejectedCount, rep.AutoDisabled, rep.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert reputation %s: %w", rep.SourceID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO source_reputation_history (source_id, ts, score)
		VALUES ($1, $2, $3)`,
		rep.SourceID, rep.LastUpdated, rep.ReputationScore)
	if err != nil {
		return fmt.Errorf("append reputation history %s: %w", rep.SourceID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reputation %s: %w", rep.SourceID, err)
	}
	return nil
}

// Get loads one snapshot with its recent history, oldest first.
func (r *SourceReputationRepo) Get(ctx context.Context, sourceID string, historyLimit int) (*core.SourceReputation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var rep core.SourceReputation
	var tier string
	err := r.db.QueryRowxContext(ctx, `
		SELECT source_id, tier, reputation_score, quality_score, accepted_count,
		       rejected_count, auto_disabled, last_updated
		FROM source_reputation WHERE source_id = $1`, sourceID).
		Scan(&rep.SourceID, &tier, &rep.ReputationScore, &rep.QualityScore,
			&rep.AcceptedCount, &rep.RejectedCount, &rep.AutoDisabled, &rep.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reputation %s: %w", sourceID, err)
	}
	rep.Tier = core.SourceTier(tier)

	if historyLimit <= 0 {
		historyLimit = 100
	}
	rows, err := r.db.QueryxContext(ctx, `
		SELECT ts, score FROM (
			SELECT ts, score FROM source_reputation_history
			WHERE source_id = $1 ORDER BY ts DESC LIMIT $2
		) h ORDER BY ts ASC`, sourceID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("reputation history %s: %w", sourceID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p core.ReputationPoint
		if err := rows.Scan(&p.Timestamp, &p.Score); err != nil {
			return nil, fmt.Errorf("scan history point: %w", err)
		}
		rep.History = append(rep.History, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rep, nil
}

// All returns every snapshot without history, ordered by source id.
func (r *SourceReputationRepo) All(ctx context.Context) ([]core.SourceReputation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT source_id, tier, reputation_score, quality_score, accepted_count,
		       rejected_count, auto_disabled, last_updated
		FROM source_reputation ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("list reputation: %w", err)
	}
	defer rows.Close()

	var out []core.SourceReputation
	for rows.Next() {
		var rep core.SourceReputation
		var tier string
		if err := rows.Scan(&rep.SourceID, &tier, &rep.ReputationScore, &rep.QualityScore,
			&rep.AcceptedCount, &rep.RejectedCount, &rep.AutoDisabled, &rep.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan reputation: %w", err)
		}
		rep.Tier = core.SourceTier(tier)
		out = append(out, rep)
	}
	return out, rows.Err()
}
