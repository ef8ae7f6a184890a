package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, NewGormRunRepository(db).Migrate(context.Background()))
	return db
}

func newRecord(runID string, kind model.AlgorithmKind) *RunRecord {
	return NewRunRecord(&model.RunRequest{RunID: runID, Kind: kind, Concurrency: 4, MaxIterations: 10})
}

func TestGormRunRepository_CreateAndGet(t *testing.T) {
	repo := NewGormRunRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("GetByRunID_NotFound", func(t *testing.T) {
		record, err := repo.GetByRunID(ctx, "missing")
		assert.Nil(t, record)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Contains(t, err.Error(), "run not found")
	})

	t.Run("Create_Success", func(t *testing.T) {
		record := newRecord("run-1", model.KindLabelProp)
		require.NoError(t, repo.Create(ctx, record))
		assert.NotZero(t, record.ID)

		got, err := repo.GetByRunID(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, model.KindLabelProp, got.Algorithm)
		assert.Equal(t, model.StatusRunning, got.Status)
		assert.Equal(t, 4, got.Concurrency)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("Create_DuplicateRunID", func(t *testing.T) {
		err := repo.Create(ctx, newRecord("run-1", model.KindPrim))
		assert.True(t, apperrors.IsDatabaseError(err))
	})

	t.Run("Create_MissingRunID", func(t *testing.T) {
		err := repo.Create(ctx, newRecord("", model.KindPrim))
		assert.True(t, apperrors.IsInvalidConfig(err))
	})
}

func TestGormRunRepository_SaveAppliesResult(t *testing.T) {
	repo := NewGormRunRepository(setupTestDB(t))
	ctx := context.Background()

	record := newRecord("run-apply", model.KindK1Coloring)
	require.NoError(t, repo.Create(ctx, record))

	result := model.NewRunResult(model.KindK1Coloring)
	result.Status = model.StatusConverged
	result.RanIterations = 3
	result.DidConverge = true
	result.NodeCount = 100
	result.RelationshipCount = 400
	result.Fingerprint = "abc"
	result.Duration = 1500 * time.Millisecond
	result.ResultKey = "results/k1coloring/run-apply.jsonl.zst"
	result.SetStat("colors", 4)
	record.Apply(result)
	require.NoError(t, repo.Save(ctx, record))

	got, err := repo.GetByRunID(ctx, "run-apply")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConverged, got.Status)
	assert.Equal(t, 3, got.RanIterations)
	assert.True(t, got.DidConverge)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.Equal(t, map[string]float64{"colors": 4}, got.StatsMap())

	view := got.ToView()
	assert.Equal(t, 1500*time.Millisecond, view.Duration)
	assert.Equal(t, int64(100), view.NodeCount)

	err = repo.Save(ctx, newRecord("never-created", model.KindPrim))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGormRunRepository_List(t *testing.T) {
	repo := NewGormRunRepository(setupTestDB(t))
	ctx := context.Background()

	kinds := []model.AlgorithmKind{model.KindPrim, model.KindRWR, model.KindPrim, model.KindLabelProp, model.KindPrim}
	for i, kind := range kinds {
		require.NoError(t, repo.Create(ctx, newRecord(string(rune('a'+i)), kind)))
	}

	t.Run("ListRecent_NewestFirst", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "e", records[0].RunID)
		assert.Equal(t, "d", records[1].RunID)
		assert.Equal(t, "c", records[2].RunID)
	})

	t.Run("ListRecent_DefaultLimit", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, records, len(kinds))
	})

	t.Run("ListByAlgorithm", func(t *testing.T) {
		records, err := repo.ListByAlgorithm(ctx, model.KindPrim, 10)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for _, r := range records {
			assert.Equal(t, model.KindPrim, r.Algorithm)
		}
		assert.Equal(t, "e", records[0].RunID)
	})

	t.Run("ListByAlgorithm_Empty", func(t *testing.T) {
		records, err := repo.ListByAlgorithm(ctx, model.KindRandomWalk, 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestGormRunRepository_UpdateStatus(t *testing.T) {
	repo := NewGormRunRepository(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRecord("run-fail", model.KindRWR)))

	t.Run("UpdateStatus_Success", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, "run-fail", model.StatusFailed, "boom"))

		got, err := repo.GetByRunID(ctx, "run-fail")
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, got.Status)
		assert.Equal(t, "boom", got.Error)
	})

	t.Run("UpdateStatus_NotFound", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, "missing", model.StatusFailed, "")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestRunRecord_StatsMap(t *testing.T) {
	assert.Nil(t, (&RunRecord{}).StatsMap())
	assert.Nil(t, (&RunRecord{Stats: JSONField("not json")}).StatsMap())

	var j JSONField
	require.NoError(t, j.Scan(`{"a":1}`))
	assert.Equal(t, map[string]float64{"a": 1}, (&RunRecord{Stats: j}).StatsMap())
	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j)
	assert.Error(t, j.Scan(42))
}
