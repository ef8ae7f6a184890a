package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/model"
)

// DefaultListLimit applies when a list call passes a non-positive limit.
const DefaultListLimit = 20

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Migrate creates or updates the algorithm_runs table.
func (r *GormRunRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&RunRecord{}); err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to migrate algorithm_runs", err)
	}
	return nil
}

// Create inserts a new run record.
func (r *GormRunRepository) Create(ctx context.Context, record *RunRecord) error {
	if record.RunID == "" {
		return apperrors.InvalidConfig("run id is required")
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to create run record", err)
	}
	return nil
}

// Save updates every column of an existing record.
func (r *GormRunRepository) Save(ctx context.Context, record *RunRecord) error {
	if record.ID == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "run record not persisted: %s", record.RunID)
	}
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to save run record", err)
	}
	return nil
}

// GetByRunID retrieves a run by its run id.
func (r *GormRunRepository) GetByRunID(ctx context.Context, runID string) (*RunRecord, error) {
	var record RunRecord

	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "run not found: %s", runID)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get run", err)
	}

	return &record, nil
}

// ListByAlgorithm retrieves the latest runs of one algorithm, newest first.
func (r *GormRunRepository) ListByAlgorithm(ctx context.Context, kind model.AlgorithmKind, limit int) ([]*RunRecord, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("algorithm = ?", kind), limit)
}

// ListRecent retrieves the latest runs, newest first.
func (r *GormRunRepository) ListRecent(ctx context.Context, limit int) ([]*RunRecord, error) {
	return r.list(ctx, r.db.WithContext(ctx), limit)
}

func (r *GormRunRepository) list(_ context.Context, query *gorm.DB, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var records []*RunRecord
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list runs", err)
	}
	return records, nil
}

// UpdateStatus sets the status of a run, with an error message for failed
// runs.
func (r *GormRunRepository) UpdateStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	result := r.db.WithContext(ctx).
		Model(&RunRecord{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"status": status,
			"error":  errMsg,
		})

	if result.Error != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to update run status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "run not found: %s", runID)
	}

	return nil
}
