package repository

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/model"
)

// SQLSummaryRepository implements SummaryRepository with plain SQL over the
// connection GORM opened.
type SQLSummaryRepository struct {
	db     *sql.DB
	dbType DBType
}

// NewSQLSummaryRepository creates a new SQLSummaryRepository. dbType selects
// the placeholder style.
func NewSQLSummaryRepository(db *sql.DB, dbType DBType) *SQLSummaryRepository {
	return &SQLSummaryRepository{db: db, dbType: dbType}
}

func (r *SQLSummaryRepository) placeholder(n int) string {
	if r.dbType == DBTypePostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SummarizeByAlgorithm returns one summary per algorithm with at least one
// run, ordered by algorithm name.
func (r *SQLSummaryRepository) SummarizeByAlgorithm(ctx context.Context) ([]AlgorithmSummary, error) {
	query := fmt.Sprintf(`
		SELECT algorithm, COUNT(*),
			   SUM(CASE WHEN status = %s THEN 1 ELSE 0 END),
			   COALESCE(AVG(duration_ms), 0), COALESCE(MAX(node_count), 0)
		FROM algorithm_runs
		GROUP BY algorithm
		ORDER BY algorithm
	`, r.placeholder(1))

	rows, err := r.db.QueryContext(ctx, query, string(model.StatusFailed))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to query run summary", err)
	}
	defer rows.Close()

	var summaries []AlgorithmSummary
	for rows.Next() {
		var s AlgorithmSummary
		var algorithm string
		if err := rows.Scan(&algorithm, &s.Runs, &s.Failed, &s.AvgDurationMs, &s.MaxNodeCount); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to scan run summary", err)
		}
		s.Algorithm = model.AlgorithmKind(algorithm)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to read run summary", err)
	}

	return summaries, nil
}
