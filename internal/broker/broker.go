package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Lectern/internal/analyzer"
	"github.com/MikeSquared-Agency/Lectern/internal/hermes"
	"github.com/MikeSquared-Agency/Lectern/internal/metrics"
)

var ErrQueueFull = errors.New("broker: request queue is full")

// Runner analyzes one document.
type Runner interface {
	Analyze(ctx context.Context, doc analyzer.Document, opts analyzer.Options) (*analyzer.Result, error)
}

type Options struct {
	Workers       int
	QueueSize     int
	StatsInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.StatsInterval <= 0 {
		o.StatsInterval = 30 * time.Second
	}
	return o
}

// Stats counts the requests the broker has handled.
type Stats struct {
	Processed   int
	Failed      int
	InFlight    int
	Uncertified int
	TotalTime   time.Duration
}

func (s Stats) AvgMs() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.TotalTime.Milliseconds()) / float64(s.Processed)
}

type request struct {
	runID uuid.UUID
	evt   hermes.AnalysisRequestEvent
}

// Broker consumes analysis requests from hermes and runs them on a fixed
// pool of workers. Completion and failure events are published by the
// analyzer under the request's run ID.
type Broker struct {
	runner   Runner
	hermes   hermes.Client
	metrics  *metrics.Metrics
	opts     Options
	logger   *slog.Logger
	readFile func(string) ([]byte, error)

	queue chan request

	statsMu sync.Mutex
	stats   Stats

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(r Runner, h hermes.Client, m *metrics.Metrics, opts Options, logger *slog.Logger) *Broker {
	if h == nil {
		h = hermes.Nop{}
	}
	opts = opts.withDefaults()
	return &Broker{
		runner:   r,
		hermes:   h,
		metrics:  m,
		opts:     opts,
		logger:   logger,
		readFile: os.ReadFile,
		queue:    make(chan request, opts.QueueSize),
		stopCh:   make(chan struct{}),
	}
}

func (b *Broker) Start(ctx context.Context) {
	b.wg.Add(b.opts.Workers + 1)
	for i := 0; i < b.opts.Workers; i++ {
		go b.worker(ctx)
	}
	go b.statsLoop(ctx)
}

func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

// SetupSubscriptions registers the request subscription.
func (b *Broker) SetupSubscriptions() error {
	return b.hermes.Subscribe(hermes.SubjectAnalysisRequest, func(_ string, data []byte) {
		var evt hermes.AnalysisRequestEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			b.logger.Warn("invalid analysis request event", "error", err)
			return
		}
		if _, err := b.Submit(evt); err != nil {
			b.logger.Warn("analysis request rejected", "request_id", evt.RequestID, "error", err)
		}
	})
}

// Submit queues evt without blocking and returns the run ID it will be
// reported under. A malformed or unqueueable request is reported as
// failed right away.
func (b *Broker) Submit(evt hermes.AnalysisRequestEvent) (uuid.UUID, error) {
	runID, err := uuid.Parse(evt.RequestID)
	if err != nil {
		runID = uuid.New()
	}
	if evt.Text == "" && evt.Path == "" {
		err := errors.New("request has neither text nor path")
		b.publishFailed(runID, evt.Path, err)
		return runID, err
	}
	select {
	case b.queue <- request{runID: runID, evt: evt}:
		return runID, nil
	default:
		b.publishFailed(runID, evt.Path, ErrQueueFull)
		return runID, ErrQueueFull
	}
}

func (b *Broker) worker(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case req := <-b.queue:
			b.process(ctx, req)
		}
	}
}

func (b *Broker) process(ctx context.Context, req request) {
	b.track(func(s *Stats) { s.InFlight++ })
	if b.metrics != nil {
		b.metrics.BrokerInFlight.Inc()
		defer b.metrics.BrokerInFlight.Dec()
	}
	start := time.Now()

	res, err := b.run(ctx, req)
	elapsed := time.Since(start)

	b.track(func(s *Stats) {
		s.InFlight--
		if err != nil {
			s.Failed++
			return
		}
		s.Processed++
		s.TotalTime += elapsed
		if !res.Certified {
			s.Uncertified++
		}
	})
	if err != nil {
		b.logger.Warn("analysis request failed", "run_id", req.runID, "path", req.evt.Path, "error", err)
		return
	}
	b.logger.Info("analysis request processed",
		"run_id", req.runID,
		"path", req.evt.Path,
		"source", req.evt.Source,
		"quality", res.Score.QualityScore,
	)
}

func (b *Broker) run(ctx context.Context, req request) (*analyzer.Result, error) {
	doc := analyzer.Document{Path: req.evt.Path, Text: req.evt.Text}
	if doc.Text == "" {
		data, err := b.readFile(doc.Path)
		if err != nil {
			err = fmt.Errorf("read %s: %w", doc.Path, err)
			b.publishFailed(req.runID, doc.Path, err)
			return nil, err
		}
		doc.Text = string(data)
	}
	return b.runner.Analyze(ctx, doc, analyzer.Options{
		RunID:         req.runID,
		RecordHistory: req.evt.Record,
		Notes:         req.evt.Notes,
	})
}

func (b *Broker) publishFailed(runID uuid.UUID, path string, err error) {
	evt := hermes.AnalysisFailedEvent{RunID: runID.String(), DocumentPath: path, Error: err.Error()}
	if perr := b.hermes.Publish(hermes.SubjectAnalysisFailed(runID.String()), evt); perr != nil {
		b.logger.Warn("failed to publish failure", "run_id", runID, "error", perr)
	}
}

func (b *Broker) track(fn func(*Stats)) {
	b.statsMu.Lock()
	fn(&b.stats)
	b.statsMu.Unlock()
}

// Stats returns a copy of the counters.
func (b *Broker) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}

func (b *Broker) statsLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.opts.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.publishStats()
		}
	}
}

func (b *Broker) publishStats() {
	s := b.Stats()
	evt := hermes.StatsEvent{
		Processed:   s.Processed,
		Failed:      s.Failed,
		InFlight:    s.InFlight,
		Uncertified: s.Uncertified,
		AvgMs:       s.AvgMs(),
		Timestamp:   time.Now().UTC(),
	}
	if err := b.hermes.Publish(hermes.SubjectBrokerStats, evt); err != nil {
		b.logger.Warn("failed to publish stats", "error", err)
	}
}
