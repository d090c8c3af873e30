package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newslens/internal/core"
)

func mockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewDB(sqlx.NewDb(raw, "sqlmock")), mock
}

func TestInsertValueMonotonic(t *testing.T) {
	db, mock := mockDB(t)
	now := time.Now()
	v := core.IndicatorValue{
		IndicatorID: "ECON_INFLATION", Timestamp: now, Value: 42, Confidence: 0.6,
		ComputedAt: now,
	}

	mock.ExpectExec("INSERT INTO indicator_values").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, db.Values().Insert(context.Background(), v))

	// A stale timestamp matches zero rows in the guarded insert.
	mock.ExpectExec("INSERT INTO indicator_values").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := db.Values().Insert(context.Background(), v)
	assert.True(t, errors.Is(err, ErrStaleValue))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRangeReturnsSeries(t *testing.T) {
	db, mock := mockDB(t)
	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	cols := []string{"indicator_id", "ts", "value", "confidence", "article_count",
		"raw_count", "sentiment_score", "source_articles", "computed_at"}
	mock.ExpectQuery("SELECT (.+) FROM indicator_values").
		WithArgs("ECON_TRADE", from, to).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("ECON_TRADE", from, 48.0, 0.5, 3, 4, nil, "{}", from).
			AddRow("ECON_TRADE", from.AddDate(0, 0, 1), 52.0, 0.7, 5, 6, nil, "{}", from))

	values, err := db.Values().Range(context.Background(), "ECON_TRADE", from, to)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, 48.0, values[0].Value)
	assert.Equal(t, 52.0, values[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestNotFound(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("SELECT (.+) FROM indicator_values").
		WillReturnRows(sqlmock.NewRows([]string{"indicator_id"}))

	_, err := db.Values().Latest(context.Background(), "MISSING")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReputationSaveIsTransactional(t *testing.T) {
	db, mock := mockDB(t)
	rep := core.SourceReputation{
		SourceID: "ada_derana", Tier: core.TierOne, ReputationScore: 0.81,
		QualityScore: 0.7, AcceptedCount: 10, RejectedCount: 2, LastUpdated: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO source_reputation").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO source_reputation_history").
		WithArgs(rep.SourceID, rep.LastUpdated, rep.ReputationScore).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, db.Reputation().Save(context.Background(), rep))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReputationSaveRollsBackOnHistoryFailure(t *testing.T) {
	db, mock := mockDB(t)
	rep := core.SourceReputation{SourceID: "s", Tier: core.TierTwo, LastUpdated: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO source_reputation").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO source_reputation_history").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := db.Reputation().Save(context.Background(), rep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBundleWritesAllRows(t *testing.T) {
	db, mock := mockDB(t)
	now := time.Now()
	bundle := &core.InsightBundle{
		CompanyID:   "c1",
		GeneratedAt: now,
		Risks: []core.DetectedRisk{{
			ID: "r1", Code: "CURRENCY_RISK", CompanyID: "c1", Title: "Currency exposure",
			Category: core.CategoryEconomic, Probability: 0.6, Impact: 8, Urgency: 4,
			Confidence: 0.85, FinalScore: 16.3, Severity: core.SeverityMedium,
			Method: core.MethodRule, DetectedAt: now,
		}},
		Opportunities: []core.DetectedOpportunity{{
			ID: "o1", Code: "EXPORT_WINDOW", CompanyID: "c1", Title: "Export window",
			Category: core.CategoryEconomic, Severity: core.SeverityLow,
			Method: core.MethodRule, DetectedAt: now,
		}},
		Recommendations: []core.Recommendation{{
			ID: "rec1", CompanyID: "c1", InsightID: "r1", Action: "Hedge payables",
			Category: core.RecImmediate, Priority: 1, CreatedAt: now,
		}},
		Portfolio: core.PortfolioMetrics{
			CompanyID: "c1", Timestamp: now, PortfolioRisk: 16.3,
			SeverityBreakdown: map[string]int{"medium": 1},
			CategoryBreakdown: map[string]int{"economic": 1},
			TopRisks:          []string{"r1"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO business_insights").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO business_insights").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO recommendations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO portfolio_metrics").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, db.Insights().SaveBundle(context.Background(), bundle))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBundleRejectsEmptyCompany(t *testing.T) {
	db, _ := mockDB(t)
	assert.Error(t, db.Insights().SaveBundle(context.Background(), &core.InsightBundle{}))
	assert.Error(t, db.Insights().SaveBundle(context.Background(), nil))
}

func TestAcknowledgeMissingEvent(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("UPDATE indicator_events").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.Events().Acknowledge(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMigrationsLoadInOrder(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version)
	}
	assert.Contains(t, migrations[0].SQL, "create_hypertable")
	assert.Contains(t, migrations[0].SQL, "indicator_hourly_agg")
}
