// Package analyzer runs the full pipeline for one document: every loaded
// dimension, enrichment, dual scoring, weight validation, reporting and
// history.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/hermes"
	"github.com/MikeSquared-Agency/Lectern/internal/metrics"
	"github.com/MikeSquared-Agency/Lectern/internal/report"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
	"github.com/MikeSquared-Agency/Lectern/internal/store"
)

var ErrEmptyDocument = errors.New("analyzer: document is empty")

// Document is the text to analyze. Path is informational and keys the
// score history; it may be empty.
type Document struct {
	Path string
	Text string
}

// Options tune a single run.
type Options struct {
	// RunID is used for events and logs; a new one is generated when nil.
	RunID uuid.UUID
	// RecordHistory appends a snapshot to the document's history. It is
	// ignored without a history store or a document path.
	RecordHistory bool
	Notes         string
}

// Result is everything one run produced.
type Result struct {
	RunID      uuid.UUID                 `json:"run_id"`
	Document   string                    `json:"document_path"`
	TotalWords int                       `json:"total_words"`
	Dimensions []scoring.DimensionResult `json:"dimensions"`
	Score      scoring.DualScoreResult   `json:"score"`
	Validation scoring.ValidationReport  `json:"weight_validation"`
	// Certified is false when the loaded weight set failed validation.
	// The scores are still computed and the rebalancing suggestion is in
	// Validation.
	Certified bool            `json:"certified"`
	Report    *report.Report  `json:"report"`
	Snapshot  *store.Snapshot `json:"snapshot,omitempty"`
	Trend     *store.Trend    `json:"trend,omitempty"`
	Duration  time.Duration   `json:"-"`
}

// Unavailable lists the dimensions that produced no score.
func (r *Result) Unavailable() []string {
	var out []string
	for _, d := range r.Dimensions {
		if !d.Enriched() {
			out = append(out, d.Dimension)
		}
	}
	return out
}

// Deps wires an Analyzer. Registry is required; History, Events and
// Metrics are optional.
type Deps struct {
	Registry *dimension.Registry
	Config   sampling.Config
	// Available names every dimension that could have been loaded. The
	// report lists the difference to Registry as not loaded.
	Available []string
	Targets   scoring.Targets
	Tolerance float64
	History   store.Store
	Events    hermes.Client
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Analyzer struct {
	registry  *dimension.Registry
	cfg       sampling.Config
	available []string
	mediator  *scoring.WeightMediator
	scorer    *scoring.DualScorer
	reporter  *report.Reporter
	history   store.Store
	events    hermes.Client
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func New(d Deps) (*Analyzer, error) {
	if d.Registry == nil {
		return nil, errors.New("analyzer: registry is required")
	}
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mediator, err := scoring.NewWeightMediator(d.Registry, d.Tolerance)
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewDualScorer(d.Registry, d.Targets, logger)
	if err != nil {
		return nil, err
	}
	events := d.Events
	if events == nil {
		events = hermes.Nop{}
	}
	return &Analyzer{
		registry:  d.Registry,
		cfg:       d.Config,
		available: d.Available,
		mediator:  mediator,
		scorer:    scorer,
		reporter:  report.NewReporter(d.Registry),
		history:   d.History,
		events:    events,
		metrics:   d.Metrics,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (a *Analyzer) Registry() *dimension.Registry { return a.registry }
func (a *Analyzer) Config() sampling.Config       { return a.cfg }
func (a *Analyzer) History() store.Store          { return a.history }

// Weights reports on the loaded weight set.
func (a *Analyzer) Weights() scoring.ValidationReport {
	return a.mediator.Report()
}

// Analyze runs every loaded dimension over doc in registration order. A
// failing dimension is recorded as unavailable and does not fail the run.
func (a *Analyzer) Analyze(ctx context.Context, doc Document, opts Options) (*Result, error) {
	start := a.now()
	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	logger := a.logger.With("run_id", runID.String(), "document", doc.Path)

	res, err := a.analyze(ctx, logger, runID, doc, opts)
	elapsed := a.now().Sub(start)
	if err != nil {
		a.metrics.ObserveAnalysis(metrics.OutcomeFailed, 0, false, elapsed)
		a.publish(hermes.SubjectAnalysisFailed(runID.String()), hermes.AnalysisFailedEvent{
			RunID:        runID.String(),
			DocumentPath: doc.Path,
			Error:        err.Error(),
		})
		return nil, err
	}

	res.Duration = elapsed
	res.Report.Metadata.ExecutionSeconds = roundMillis(elapsed)
	a.metrics.ObserveAnalysis(metrics.OutcomeOK, res.Score.QualityScore, res.Certified, elapsed)
	a.publish(hermes.SubjectAnalysisCompleted(runID.String()), hermes.AnalysisCompletedEvent{
		RunID:           runID.String(),
		DocumentPath:    doc.Path,
		QualityScore:    res.Score.QualityScore,
		DetectionRisk:   res.Score.DetectionRisk,
		Grade:           res.Report.Overall.Grade,
		Certified:       res.Certified,
		EstimatedEffort: res.Score.EstimatedEffort,
		Unavailable:     res.Unavailable(),
		DurationMs:      elapsed.Milliseconds(),
	})
	logger.Info("analysis complete",
		"quality", res.Score.QualityScore,
		"detection", res.Score.DetectionRisk,
		"certified", res.Certified,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, logger *slog.Logger, runID uuid.UUID, doc Document, opts Options) (*Result, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrEmptyDocument
	}
	a.publish(hermes.SubjectAnalysisStarted(runID.String()), hermes.AnalysisStartedEvent{
		RunID:        runID.String(),
		DocumentPath: doc.Path,
		Dimensions:   a.registry.Names(),
	})

	dims := a.registry.All()
	results := make([]scoring.DimensionResult, 0, len(dims))
	for _, d := range dims {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis cancelled: %w", err)
		}
		results = append(results, a.runDimension(ctx, logger, d, doc.Text))
	}

	enriched := scoring.Enrich(a.registry, results)
	score := a.scorer.Score(enriched)

	certified := true
	if err := a.mediator.RequireValid(); err != nil {
		var werr *scoring.WeightValidationError
		if !errors.As(err, &werr) {
			return nil, err
		}
		certified = false
		logger.Warn("weight set failed validation, score is not certified",
			"total_weight", werr.TotalWeight,
			"errors", len(werr.Violations),
		)
	}
	validation := a.mediator.Report()

	res := &Result{
		RunID:      runID,
		Document:   doc.Path,
		TotalWords: len(strings.Fields(doc.Text)),
		Dimensions: enriched,
		Score:      score,
		Validation: validation,
		Certified:  certified,
	}
	res.Report = a.reporter.Generate(report.Input{
		DocumentPath: doc.Path,
		TotalWords:   res.TotalWords,
		Results:      enriched,
		Score:        score,
		Available:    a.available,
		Validation:   &validation,
		Timestamp:    score.Timestamp,
	})

	if opts.RecordHistory && a.history != nil && doc.Path != "" {
		a.record(ctx, logger, res, opts.Notes)
	}
	return res, nil
}

// runDimension analyzes, scores and collects recommendations for one
// dimension, turning any error or panic into an unavailable result.
func (a *Analyzer) runDimension(ctx context.Context, logger *slog.Logger, d dimension.Dimension, text string) (res scoring.DimensionResult) {
	name := d.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dimension panicked", "dimension", name, "panic", r)
			res = scoring.Unavailable(name, fmt.Errorf("panic: %v", r))
		}
		outcome := metrics.OutcomeOK
		if !res.Available {
			outcome = metrics.OutcomeUnavailable
		}
		a.metrics.ObserveDimension(name, outcome, time.Since(start))
	}()

	m, samples, err := a.analyzeText(ctx, d, text)
	if err != nil {
		logger.Warn("dimension unavailable", "dimension", name, "error", err)
		return scoring.Unavailable(name, err)
	}
	score, err := d.CalculateScore(m)
	if err != nil {
		logger.Warn("dimension could not be scored", "dimension", name, "error", err)
		return scoring.Unavailable(name, err)
	}
	return scoring.DimensionResult{
		Dimension:       name,
		Available:       true,
		Metrics:         m,
		Score:           &score,
		Recommendations: d.Recommendations(score, m),
		SampleCount:     samples,
	}
}

// analyzeText prepares the text for d and runs Analyze over it. Sampled
// text is analyzed per sample and merged; failed samples are skipped as
// long as at least one succeeds.
func (a *Analyzer) analyzeText(ctx context.Context, d dimension.Dimension, text string) (sampling.Map, int, error) {
	prep := a.prepare(d, text)
	if !prep.Sampled() {
		m, err := d.Analyze(ctx, prep.Text, splitLines(prep.Text), a.cfg)
		if err != nil {
			return nil, 0, err
		}
		return m, 1, nil
	}

	var (
		merged  []sampling.Map
		lastErr error
	)
	for _, s := range prep.Samples {
		m, err := d.Analyze(ctx, s.Text, splitLines(s.Text), a.cfg)
		if err != nil {
			lastErr = err
			continue
		}
		merged = append(merged, m)
	}
	if len(merged) == 0 {
		return nil, 0, fmt.Errorf("all %d samples failed: %w", len(prep.Samples), lastErr)
	}
	return sampling.Merge(merged), len(merged), nil
}

func (a *Analyzer) prepare(d dimension.Dimension, text string) sampling.Prepared {
	if _, ok := a.cfg.Override(d.Name()); !ok {
		if p, ok := d.(dimension.PrefixAnalyzer); ok {
			return sampling.Prefix(text, p.FixedPrefix())
		}
	}
	return a.cfg.PrepareText(text, d.Name())
}

func (a *Analyzer) record(ctx context.Context, logger *slog.Logger, res *Result, notes string) {
	snap := Snapshot(res, a.registry, a.cfg.Mode, notes)
	h, err := store.Record(ctx, a.history, res.Document, snap)
	if err != nil {
		logger.Error("failed to record history", "error", err)
		return
	}
	latest, _ := h.Latest()
	trend := h.Trend()
	res.Snapshot = &latest
	res.Trend = &trend
}

// Snapshot condenses a result into a history entry.
func Snapshot(res *Result, reg *dimension.Registry, mode sampling.Mode, notes string) store.Snapshot {
	dims := make(map[string]store.DimensionDetail, len(res.Dimensions))
	for _, d := range res.Dimensions {
		detail := store.DimensionDetail{Tier: string(dimension.TierUnknown)}
		if dim, ok := reg.Get(d.Dimension); ok {
			detail.Tier = string(dim.Tier())
		}
		if d.Enriched() {
			score := d.Enrichment.Score
			detail.Score = &score
			detail.Available = true
		}
		dims[d.Dimension] = detail
	}
	return store.Snapshot{
		ID:                      res.RunID,
		Timestamp:               res.Score.Timestamp,
		Quality:                 res.Score.QualityScore,
		Detection:               res.Score.DetectionRisk,
		QualityInterpretation:   res.Score.QualityInterpretation,
		DetectionInterpretation: res.Score.DetectionInterpretation,
		TotalWords:              res.TotalWords,
		Notes:                   notes,
		Mode:                    string(mode),
		Certified:               res.Certified,
		Dimensions:              dims,
	}
}

func (a *Analyzer) publish(subject string, event interface{}) {
	if err := a.events.Publish(subject, event); err != nil {
		a.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func roundMillis(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
