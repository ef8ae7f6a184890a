// Package service runs algorithm requests end to end: it loads the graph,
// runs the algorithm, exports the rows and records the run.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/graph-analytics/internal/algorithm"
	"github.com/graph-analytics/internal/repository"
	"github.com/graph-analytics/internal/storage"
	"github.com/graph-analytics/pkg/compression"
	"github.com/graph-analytics/pkg/config"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/model"
	"github.com/graph-analytics/pkg/progress"
	"github.com/graph-analytics/pkg/telemetry"
	"github.com/graph-analytics/pkg/utils"
	"github.com/graph-analytics/pkg/writer"
)

// AutoOutput as RunRequest.Output exports to the default result key.
const AutoOutput = "auto"

// Service is the main application service.
type Service struct {
	config  *config.Config
	logger  utils.Logger
	db      *repository.Repositories
	runs    repository.RunRepository
	storage storage.Storage
	tracker progress.Tracker
	tracer  trace.Tracer
	clock   utils.Clock
}

// StageStatPrefix prefixes the per-stage durations Execute adds to the
// result statistics, e.g. "stage_load_ms".
const StageStatPrefix = "stage_"

// Stage names timed by Execute.
const (
	StageLoad        = "load"
	StageFingerprint = "fingerprint"
	StageRun         = "run"
	StageExport      = "export"
	StagePersist     = "persist"
)

// Option configures a Service.
type Option func(*Service)

// WithRunRepository records runs in repo instead of the configured
// database.
func WithRunRepository(repo repository.RunRepository) Option {
	return func(s *Service) { s.runs = repo }
}

// WithStorage uses store instead of the configured storage.
func WithStorage(store storage.Storage) Option {
	return func(s *Service) { s.storage = store }
}

// WithProgress reports algorithm progress to tracker instead of logging it.
func WithProgress(tracker progress.Tracker) Option {
	return func(s *Service) { s.tracker = tracker }
}

// WithClock measures stage durations with clock.
func WithClock(clock utils.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	s := &Service{
		config: cfg,
		logger: logger,
		tracer: telemetry.Tracer("service"),
		clock:  utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize connects the components not injected through options.
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("Initializing service components...")

	if err := s.config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if s.runs == nil && s.config.Database.Enabled() {
		if err := s.initDatabase(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if s.storage == nil {
		if err := s.initStorage(); err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	s.logger.Info("Service components initialized successfully")
	return nil
}

// initDatabase initializes the database connection and repositories.
func (s *Service) initDatabase(ctx context.Context) error {
	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)

	repos, err := repository.Open(ctx, &s.config.Database)
	if err != nil {
		return err
	}

	s.db = repos
	s.runs = repos.Runs
	s.logger.Info("Database connection established")
	return nil
}

// initStorage initializes the object storage.
func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := storage.NewStorage(&s.config.Storage)
	if err != nil {
		return err
	}

	s.storage = store
	s.logger.Info("Storage initialized")
	return nil
}

// Repositories returns the database repositories, or nil when run history
// is disabled or injected.
func (s *Service) Repositories() *repository.Repositories {
	return s.db
}

// Storage returns the storage results are exported to.
func (s *Service) Storage() storage.Storage {
	return s.storage
}

// Close releases the database connection.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ============================================================================
// Execute
// ============================================================================

// Execute runs req and returns its result. The run is recorded before it
// starts and updated when it ends; a failing run is recorded as failed.
// Cancelling ctx stops the algorithm and the export cooperatively and
// returns the partial result with status cancelled.
func (s *Service) Execute(ctx context.Context, req *model.RunRequest) (result *model.RunResult, err error) {
	s.applyDefaults(req)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "service.Execute", trace.WithAttributes(
		attribute.String("run.id", req.RunID),
		attribute.String("run.algorithm", req.Kind.String()),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	log := s.logger.WithFields(map[string]interface{}{
		"run_id":    req.RunID,
		"algorithm": req.Kind,
	})
	log.Info("Run started (input %s)", req.Input)

	record := repository.NewRunRecord(req)
	if s.runs != nil {
		// a fresh context so the record is written even after cancellation
		if err := s.runs.Create(context.WithoutCancel(ctx), record); err != nil {
			return nil, err
		}
	}

	timer := utils.NewTimer("run "+req.RunID, utils.WithTimerClock(s.clock), utils.WithTimerLogger(log))
	result, err = s.execute(ctx, log, timer, req)
	if err != nil {
		log.Error("Run failed: %v", err)
		s.recordFailure(ctx, log, req.RunID, err)
		return nil, err
	}
	for name, ms := range timer.Milliseconds(StageStatPrefix) {
		result.SetStat(name, ms)
	}

	persistTimer := timer.Start(StagePersist)
	err = s.persist(ctx, record, result)
	persistTimer.Stop()
	if err != nil {
		return result, err
	}
	span.SetAttributes(attribute.String("run.status", string(result.Status)))
	timer.PrintSummary()
	log.Info("Run finished: %s after %d iteration(s) in %v (%s)",
		result.Status, result.RanIterations, result.Duration, timer.Summary())
	return result, nil
}

func (s *Service) execute(ctx context.Context, log utils.Logger, timer *utils.Timer, req *model.RunRequest) (*model.RunResult, error) {
	stage := timer.Start(StageLoad)
	g, err := s.loadGraph(ctx, req)
	stage.Stop()
	if err != nil {
		return nil, err
	}
	log.Info("Loaded graph with %d nodes and %d relationships", g.NodeCount(), g.RelationshipCount())

	var fingerprint string
	timer.TimeFunc(StageFingerprint, func() { fingerprint = s.fingerprint(ctx, g) })

	stage = timer.Start(StageRun)
	result, err := s.runAlgorithm(ctx, log, g, req)
	stage.Stop()
	if err != nil {
		return nil, err
	}
	result.Fingerprint = fingerprint

	// rows are produced lazily, so the export stage also covers most of
	// the work of streaming algorithms
	stage = timer.Start(StageExport)
	exportErr := s.export(ctx, log, req, result)
	finishErr := result.Finish()
	stage.Stop()
	if finishErr != nil {
		return nil, finishErr
	}
	if exportErr != nil {
		return nil, exportErr
	}
	if ctx.Err() != nil {
		result.Status = model.StatusCancelled
	}
	return result, nil
}

// applyDefaults fills request fields left at zero from the configuration.
func (s *Service) applyDefaults(req *model.RunRequest) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	engine := s.config.Engine
	if req.Concurrency == 0 {
		req.Concurrency = engine.Concurrency
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = engine.MaxIterations
	}
	if req.MinBatchSize == 0 {
		req.MinBatchSize = engine.MinBatchSize
	}
	if req.Compression == "" {
		req.Compression = s.config.Export.Compression
	}

	sampling := s.config.Sampling
	o := &req.Options
	if o.SamplingRatio == 0 {
		o.SamplingRatio = sampling.SamplingRatio
	}
	if o.RestartProbability == 0 {
		o.RestartProbability = sampling.RestartProbability
	}
	if o.Seed == 0 {
		o.Seed = sampling.Seed
	}
	if o.Seed == 0 {
		o.Seed = randomSeed()
	}
	if o.WalkLength == 0 {
		o.WalkLength = sampling.WalkLength
	}
	if o.WalksPerNode == 0 {
		o.WalksPerNode = sampling.WalksPerNode
	}
	if o.BufferSize == 0 {
		o.BufferSize = sampling.BufferSize
	}
	if o.ReturnFactor == 0 {
		o.ReturnFactor = sampling.ReturnFactor
	}
	if o.InOutFactor == 0 {
		o.InOutFactor = sampling.InOutFactor
	}
}

// randomSeed draws a positive seed that survives the float64 run statistics.
func randomSeed() int64 {
	return rand.Int63n(maxExactSeed) + 1
}

const maxExactSeed = 1 << 53

// ============================================================================
// Stages
// ============================================================================

// loadGraph reads the edge list from a local path or a storage key.
// Compressed inputs are detected from their header.
func (s *Service) loadGraph(ctx context.Context, req *model.RunRequest) (g *graph.CSRGraph, err error) {
	ctx, span := s.tracer.Start(ctx, "service.LoadGraph", trace.WithAttributes(
		attribute.String("input", req.Input),
		attribute.Bool("input.from_storage", req.InputFromStorage),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	var src io.ReadCloser
	if req.InputFromStorage {
		if s.storage == nil {
			return nil, fmt.Errorf("storage is not initialized")
		}
		src, err = s.storage.Download(ctx, req.Input)
	} else {
		src, err = os.Open(req.Input)
	}
	if err != nil {
		return nil, err
	}
	defer src.Close()

	r, codec, err := compression.NewAutoReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	span.SetAttributes(attribute.String("input.compression", string(codec)))

	g, err = graph.LoadEdgeList(r, graph.LoadOptions{Undirected: req.Undirected})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("graph.node_count", g.NodeCount()),
		attribute.Int64("graph.relationship_count", g.RelationshipCount()),
	)
	return g, nil
}

func (s *Service) fingerprint(ctx context.Context, g graph.Graph) string {
	_, span := s.tracer.Start(ctx, "service.Fingerprint")
	defer span.End()
	fp := graph.Fingerprint(g)
	span.SetAttributes(attribute.String("graph.fingerprint", fp))
	return fp
}

func (s *Service) runAlgorithm(ctx context.Context, log utils.Logger, g graph.Graph, req *model.RunRequest) (result *model.RunResult, err error) {
	ctx, span := s.tracer.Start(ctx, "service.RunAlgorithm", trace.WithAttributes(
		attribute.String("run.algorithm", req.Kind.String()),
		attribute.Int("run.concurrency", req.Concurrency),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	tracker := s.tracker
	if tracker == nil {
		tracker = progress.NewLogTracker(req.Kind.String(), log, 10)
	}
	registry := algorithm.NewRegistry(algorithm.WithLogger(log), algorithm.WithProgress(tracker))
	return registry.Run(ctx, g, req)
}

// export writes the rows to a run-local file and uploads it. Without an
// output key the rows are only counted.
func (s *Service) export(ctx context.Context, log utils.Logger, req *model.RunRequest, result *model.RunResult) (err error) {
	if req.Output == "" {
		result.SetStat("rows", float64(result.CountRows()))
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "service.Export")
	defer func() { telemetry.EndSpan(span, err) }()

	compressionType, err := compression.ParseType(req.Compression)
	if err != nil {
		return err
	}
	codec, err := compression.New(compressionType, compression.LevelDefault)
	if err != nil {
		return err
	}

	key := req.Output
	if key == AutoOutput {
		key = storage.ResultKey(s.config.Export.Prefix, req.Kind.String(), req.RunID, compressionType)
	}
	if s.storage == nil {
		return fmt.Errorf("storage is not initialized")
	}

	runDir := s.config.GetRunDir(req.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	defer os.RemoveAll(runDir)
	localPath := filepath.Join(runDir, "rows.jsonl"+compressionType.Extension())

	written, err := writer.NewRowWriter(codec).WriteToFile(ctx, result.Rows, localPath)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			log.Warn("Export cancelled, nothing uploaded")
			return nil
		}
		return err
	}
	span.SetAttributes(
		attribute.String("export.key", key),
		attribute.Int64("export.rows", written.Rows),
		attribute.Int64("export.bytes", written.CompressedSize),
	)

	if err := s.storage.UploadFile(context.WithoutCancel(ctx), key, localPath); err != nil {
		return err
	}
	result.ResultKey = key
	result.SetStat("rows", float64(written.Rows))
	log.Info("Exported %d rows to %s (%d bytes, %.1f%% of JSON)",
		written.Rows, s.storage.GetURL(key), written.CompressedSize, written.CompressionPct)
	return nil
}

// persist stores the outcome of a finished run.
func (s *Service) persist(ctx context.Context, record *repository.RunRecord, result *model.RunResult) (err error) {
	if s.runs == nil {
		return nil
	}
	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "service.Persist")
	defer func() { telemetry.EndSpan(span, err) }()

	record.Apply(result)
	return s.runs.Save(ctx, record)
}

func (s *Service) recordFailure(ctx context.Context, log utils.Logger, runID string, runErr error) {
	if s.runs == nil {
		return
	}
	if err := s.runs.UpdateStatus(context.WithoutCancel(ctx), runID, model.StatusFailed, runErr.Error()); err != nil {
		log.Warn("Failed to record run failure: %v", err)
	}
}
