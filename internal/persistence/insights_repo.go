package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"newslens/internal/core"
)

// BusinessInsightRepo persists finished insight bundles: risk and
// opportunity rows, recommendations and the portfolio snapshot, all in
// one transaction. It satisfies the insights sink contract.
type BusinessInsightRepo struct {
	db *sqlx.DB
}

// SaveBundle writes every row of one bundle atomically.
func (r *BusinessInsightRepo) SaveBundle(ctx context.Context, bundle *core.InsightBundle) error {
	if bundle == nil || bundle.CompanyID == "" {
		return fmt.Errorf("bundle company id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*defaultQueryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bundle tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertInsight = `
		INSERT INTO business_insights
			(id, company_id, kind, code, title, category, probability, impact,
			 urgency, confidence, final_score, severity, method, immediate,
			 payload, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING`

	for i := range bundle.Risks {
		risk := &bundle.Risks[i]
		payload, err := json.Marshal(risk)
		if err != nil {
			return fmt.Errorf("marshal risk %s: %w", risk.Code, err)
		}
		if _, err := tx.ExecContext(ctx, insertInsight,
			risk.ID, bundle.CompanyID, "risk", risk.Code, risk.Title,
			string(risk.Category), risk.Probability, risk.Impact, risk.Urgency,
			risk.Confidence, risk.FinalScore, string(risk.Severity),
			string(risk.Method), risk.Immediate, payload, risk.DetectedAt); err != nil {
			return fmt.Errorf("insert risk %s: %w", risk.Code, err)
		}
	}
	for i := range bundle.Opportunities {
		opp := &bundle.Opportunities[i]
		payload, err := json.Marshal(opp)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", opp.Code, err)
		}
		if _, err := tx.ExecContext(ctx, insertInsight,
			opp.ID, bundle.CompanyID, "opportunity", opp.Code, opp.Title,
			string(opp.Category), opp.Probability, opp.Impact, opp.Urgency,
			opp.Confidence, opp.FinalScore, string(opp.Severity),
			string(opp.Method), false, payload, opp.DetectedAt); err != nil {
			return fmt.Errorf("insert opportunity %s: %w", opp.Code, err)
		}
	}

	for _, rec := range bundle.Recommendations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommendations
				(id, company_id, insight_id, action, rationale, category, priority, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.CompanyID, rec.InsightID, rec.Action, rec.Rationale,
			string(rec.Category), rec.Priority, rec.CreatedAt); err != nil {
			return fmt.Errorf("insert recommendation %s: %w", rec.ID, err)
		}
	}

	severity, err := json.Marshal(bundle.Portfolio.SeverityBreakdown)
	if err != nil {
		return fmt.Errorf("marshal severity breakdown: %w", err)
	}
	category, err := json.Marshal(bundle.Portfolio.CategoryBreakdown)
	if err != nil {
		return fmt.Errorf("marshal category breakdown: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO portfolio_metrics
			(company_id, ts, portfolio_risk, severity_breakdown, category_breakdown,
			 top_risks, top_opportunities)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id, ts) DO NOTHING`,
		bundle.CompanyID, bundle.Portfolio.Timestamp, bundle.Portfolio.PortfolioRisk,
		severity, category, pq.Array(bundle.Portfolio.TopRisks),
		pq.Array(bundle.Portfolio.TopOpportunities)); err != nil {
		return fmt.Errorf("insert portfolio metrics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bundle: %w", err)
	}
	return nil
}

// RecentRisks loads persisted risks for a company since a cutoff,
// newest first, rehydrated from the JSON payload.
func (r *BusinessInsightRepo) RecentRisks(ctx context.Context, companyID string, since time.Time) ([]core.DetectedRisk, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT payload FROM business_insights
		WHERE company_id = $1 AND kind = 'risk' AND detected_at >= $2
		ORDER BY detected_at DESC`, companyID, since)
	if err != nil {
		return nil, fmt.Errorf("recent risks %s: %w", companyID, err)
	}
	defer rows.Close()

	var out []core.DetectedRisk
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan risk payload: %w", err)
		}
		var risk core.DetectedRisk
		if err := json.Unmarshal(payload, &risk); err != nil {
			return nil, fmt.Errorf("decode risk payload: %w", err)
		}
		out = append(out, risk)
	}
	return out, rows.Err()
}
