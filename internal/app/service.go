// Package app wires the pipeline stages into a single unit of work: clean,
// aggregate, score, flag. A run either completes all four stages and hands
// back complete tables, or fails with no partial output.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/finsift/internal/adapters/mq/worker"
	"github.com/okian/finsift/internal/adapters/riskindex"
	"github.com/okian/finsift/internal/config"
	"github.com/okian/finsift/internal/domain/cleaner"
	"github.com/okian/finsift/internal/domain/feature"
	"github.com/okian/finsift/internal/domain/flagging"
	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/internal/domain/scoring"
	"github.com/okian/finsift/pkg/logger"
	"github.com/okian/finsift/pkg/metrics"
)

// Result bundles the complete output tables of one pipeline run.
type Result struct {
	RunID        string
	Transactions []model.Transaction // cleaned table
	CleanReport  cleaner.Report
	Features     []model.CustomerFeatures // sorted by customer id
	Scores       []model.RiskScore        // aligned with Features
	Index        *riskindex.Index
	Flags        []model.Flag // sorted by suspicion score desc
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service runs the feature-aggregation, risk-scoring, and anomaly-flagging
// pipeline over an in-memory transaction table.
type Service struct {
	cleaner     *cleaner.Cleaner
	builder     *feature.Builder
	scorer      *scoring.Scorer
	flagger     *flagging.Flagger
	pool        *worker.Pool
	workerCount int
	logger      logger.Logger
}

// New builds a Service from configuration. Configuration problems surface
// here, before any data is touched.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(context.Background()); err != nil {
		return nil, err
	}

	scorer, err := scoring.New(
		scoring.WithWeights(cfg.ScoreWeights),
		scoring.WithBandCuts(cfg.Bands.Medium, cfg.Bands.High, cfg.Bands.Critical),
	)
	if err != nil {
		return nil, err
	}

	builder := feature.New(
		feature.WithNightWindow(cfg.NightStart, cfg.NightEnd),
		feature.WithRollingWindow(cfg.RollingWindow),
	)

	s := &Service{
		cleaner: cleaner.New(cleaner.WithStepsPerDay(cfg.StepsPerDay)),
		builder: builder,
		scorer:  scorer,
		flagger: flagging.New(
			flagging.WithZThreshold(cfg.ZScoreThreshold),
			flagging.WithNightWindow(cfg.NightStart, cfg.NightEnd),
			flagging.WithVelocity(cfg.VelocityWindow, cfg.VelocityMax),
			flagging.WithStructuring(cfg.StructuringThreshold, cfg.StructuringTolerance, cfg.StructuringMinCount),
			flagging.WithRuleWeights(cfg.RuleWeights),
		),
		pool: worker.NewPool(builder,
			worker.WithWorkerCount(cfg.WorkerCount),
			worker.WithQueueSize(cfg.QueueSize),
		),
		workerCount: cfg.WorkerCount,
		logger:      logger.Get().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes all four stages over txs. On any stage error the run fails
// whole: no partial result is returned.
func (s *Service) Run(ctx context.Context, txs []model.Transaction) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	s.logger.Info(ctx, "pipeline run starting",
		logger.String("run_id", runID),
		logger.Int("rows", len(txs)),
	)

	res, err := s.run(ctx, runID, txs)
	if err != nil {
		metrics.RecordRunFailed()
		s.logger.Error(ctx, "pipeline run failed",
			logger.String("run_id", runID),
			logger.Error(err),
		)
		return nil, err
	}

	metrics.RecordRunCompleted()
	s.logger.Info(ctx, "pipeline run complete",
		logger.String("run_id", runID),
		logger.Int("customers", len(res.Features)),
		logger.Int("flags", len(res.Flags)),
		logger.Float64("seconds", time.Since(start).Seconds()),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, runID string, txs []model.Transaction) (*Result, error) {
	// Stage 1: clean.
	stageStart := time.Now()
	cleaned, cleanRep, err := s.cleaner.Clean(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("clean stage: %w", err)
	}
	metrics.RecordStageDuration("clean", time.Since(stageStart))
	metrics.RecordRowsDropped("invalid", cleanRep.DroppedInvalid)
	metrics.RecordRowsDeduplicated(cleanRep.DroppedDuplicates)

	// Stage 2: features, one row per origin account.
	stageStart = time.Now()
	features, err := s.buildFeatures(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("feature stage: %w", err)
	}
	metrics.RecordStageDuration("feature", time.Since(stageStart))
	metrics.UpdateCustomersFeatured(len(features))

	// Stage 3: scores and the ranked index.
	stageStart = time.Now()
	scores, err := s.scorer.Score(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("scoring stage: %w", err)
	}
	index := riskindex.Build(ctx, scores)
	metrics.RecordStageDuration("score", time.Since(stageStart))

	// Stage 4: flags. The index lookup may miss for UNKNOWN-origin rows;
	// the flagger degrades the high-risk rule instead of failing.
	stageStart = time.Now()
	flags, err := s.flagger.Flag(ctx, cleaned, index)
	if err != nil {
		return nil, fmt.Errorf("flagging stage: %w", err)
	}
	metrics.RecordStageDuration("flag", time.Since(stageStart))
	for _, fl := range flags {
		for _, reason := range fl.Reasons {
			metrics.RecordFlagEmitted(reason)
		}
	}

	return &Result{
		RunID:        runID,
		Transactions: cleaned,
		CleanReport:  cleanRep,
		Features:     features,
		Scores:       scores,
		Index:        index,
		Flags:        flags,
	}, nil
}

// buildFeatures aggregates per-account groups, on the worker pool when more
// than one worker is configured. Either path yields the same rows; the
// output is sorted by customer id so downstream tables are reproducible.
func (s *Service) buildFeatures(ctx context.Context, cleaned []model.Transaction) ([]model.CustomerFeatures, error) {
	var features []model.CustomerFeatures

	if s.workerCount > 1 {
		if len(cleaned) == 0 {
			return nil, feature.ErrEmptyInput
		}
		rows, err := s.pool.Run(ctx, feature.Group(cleaned))
		if err != nil {
			return nil, err
		}
		features = make([]model.CustomerFeatures, 0, len(rows))
		for _, row := range rows {
			features = append(features, row)
		}
	} else {
		var err error
		features, err = s.builder.Build(ctx, cleaned)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(features, func(i, j int) bool { return features[i].Customer < features[j].Customer })
	return features, nil
}
