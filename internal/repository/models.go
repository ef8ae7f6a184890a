package repository

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/graph-analytics/pkg/model"
)

// RunRecord represents the algorithm_runs table.
type RunRecord struct {
	ID                int64               `gorm:"column:id;primaryKey;autoIncrement"`
	RunID             string              `gorm:"column:run_id;type:varchar(64);uniqueIndex"`
	Algorithm         model.AlgorithmKind `gorm:"column:algorithm;type:varchar(32);index"`
	Fingerprint       string              `gorm:"column:graph_fingerprint;type:varchar(64)"`
	NodeCount         int64               `gorm:"column:node_count"`
	RelationshipCount int64               `gorm:"column:relationship_count"`
	Concurrency       int                 `gorm:"column:concurrency"`
	MaxIterations     int                 `gorm:"column:max_iterations"`
	RanIterations     int                 `gorm:"column:ran_iterations"`
	DidConverge       bool                `gorm:"column:did_converge"`
	Status            model.RunStatus     `gorm:"column:status;type:varchar(32)"`
	DurationMs        int64               `gorm:"column:duration_ms"`
	ResultKey         string              `gorm:"column:result_key;type:varchar(512)"`
	Error             string              `gorm:"column:error;type:text"`
	Stats             JSONField           `gorm:"column:stats;type:json"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for RunRecord.
func (RunRecord) TableName() string {
	return "algorithm_runs"
}

// NewRunRecord creates a running record for req.
func NewRunRecord(req *model.RunRequest) *RunRecord {
	return &RunRecord{
		RunID:         req.RunID,
		Algorithm:     req.Kind,
		Concurrency:   req.Concurrency,
		MaxIterations: req.MaxIterations,
		Status:        model.StatusRunning,
	}
}

// Apply copies the outcome of a run into the record.
func (r *RunRecord) Apply(result *model.RunResult) {
	r.Status = result.Status
	r.Fingerprint = result.Fingerprint
	r.NodeCount = result.NodeCount
	r.RelationshipCount = result.RelationshipCount
	r.RanIterations = result.RanIterations
	r.DidConverge = result.DidConverge
	r.DurationMs = result.Duration.Milliseconds()
	r.ResultKey = result.ResultKey
	if len(result.Stats) > 0 {
		if data, err := sonnet.Marshal(result.Stats); err == nil {
			r.Stats = data
		}
	}
}

// StatsMap decodes the stats column. A missing or malformed column yields
// nil.
func (r *RunRecord) StatsMap() map[string]float64 {
	if len(r.Stats) == 0 {
		return nil
	}
	var stats map[string]float64
	if err := sonnet.Unmarshal(r.Stats, &stats); err != nil {
		return nil
	}
	return stats
}

// ToView converts RunRecord to model.RunRecordView.
func (r *RunRecord) ToView() model.RunRecordView {
	return model.RunRecordView{
		RunID:         r.RunID,
		Algorithm:     r.Algorithm,
		Status:        r.Status,
		NodeCount:     r.NodeCount,
		RanIterations: r.RanIterations,
		Duration:      time.Duration(r.DurationMs) * time.Millisecond,
		CreatedAt:     r.CreatedAt,
	}
}

// ============================================================================
// JSONField
// ============================================================================

// JSONField stores raw JSON in a json column.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}
