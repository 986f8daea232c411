package broker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MikeSquared-Agency/Lectern/internal/analyzer"
	"github.com/MikeSquared-Agency/Lectern/internal/hermes"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
)

type published struct {
	subject string
	data    interface{}
}

type mockHermes struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]func(string, []byte)
}

func (m *mockHermes) Publish(subject string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{subject, data})
	return nil
}

func (m *mockHermes) Subscribe(subject string, handler func(string, []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]func(string, []byte))
	}
	m.handlers[subject] = handler
	return nil
}

func (m *mockHermes) Close() {}

func (m *mockHermes) deliver(t *testing.T, subject string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	m.mu.Lock()
	h := m.handlers[subject]
	m.mu.Unlock()
	require.NotNil(t, h, "no handler for %s", subject)
	h(subject, data)
}

func (m *mockHermes) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published))
	for i, p := range m.published {
		out[i] = p.subject
	}
	return out
}

type mockRunner struct {
	mu        sync.Mutex
	docs      []analyzer.Document
	opts      []analyzer.Options
	err       error
	certified bool
}

func (m *mockRunner) Analyze(_ context.Context, doc analyzer.Document, opts analyzer.Options) (*analyzer.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	return &analyzer.Result{
		RunID:     opts.RunID,
		Certified: m.certified,
		Score:     scoring.DualScoreResult{QualityScore: 72, DetectionRisk: 28},
	}, nil
}

func (m *mockRunner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBrokerProcessesRequests(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &mockHermes{}
	r := &mockRunner{certified: true}
	b := New(r, h, nil, Options{Workers: 2}, discardLogger())
	require.NoError(t, b.SetupSubscriptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	reqID := uuid.New()
	h.deliver(t, hermes.SubjectAnalysisRequest, hermes.AnalysisRequestEvent{
		RequestID: reqID.String(),
		Text:      "Some text to analyze.",
		Notes:     "from queue",
		Record:    true,
	})

	require.Eventually(t, func() bool { return b.Stats().Processed == 1 }, time.Second, 5*time.Millisecond)
	b.Stop()

	require.Equal(t, 1, r.calls())
	assert.Equal(t, "Some text to analyze.", r.docs[0].Text)
	assert.Equal(t, reqID, r.opts[0].RunID)
	assert.True(t, r.opts[0].RecordHistory)
	assert.Equal(t, "from queue", r.opts[0].Notes)

	s := b.Stats()
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, 0, s.InFlight)
	assert.Equal(t, 0, s.Uncertified)
}

func TestBrokerReadsPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &mockHermes{}
	r := &mockRunner{}
	b := New(r, h, nil, Options{Workers: 1}, discardLogger())
	b.readFile = func(path string) ([]byte, error) {
		if path == "/docs/ok.md" {
			return []byte("file body"), nil
		}
		return nil, errors.New("no such file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	_, err := b.Submit(hermes.AnalysisRequestEvent{Path: "/docs/ok.md"})
	require.NoError(t, err)
	missing, err := b.Submit(hermes.AnalysisRequestEvent{Path: "/docs/missing.md"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := b.Stats()
		return s.Processed+s.Failed == 2
	}, time.Second, 5*time.Millisecond)
	b.Stop()

	require.Equal(t, 1, r.calls())
	assert.Equal(t, "file body", r.docs[0].Text)
	assert.Equal(t, "/docs/ok.md", r.docs[0].Path)
	assert.Equal(t, 1, b.Stats().Uncertified)
	assert.Contains(t, h.subjects(), hermes.SubjectAnalysisFailed(missing.String()))
}

func TestBrokerRejectsEmptyRequest(t *testing.T) {
	h := &mockHermes{}
	b := New(&mockRunner{}, h, nil, Options{}, discardLogger())

	runID, err := b.Submit(hermes.AnalysisRequestEvent{Source: "cli"})
	require.Error(t, err)
	assert.Equal(t, []string{hermes.SubjectAnalysisFailed(runID.String())}, h.subjects())
}

func TestBrokerQueueFull(t *testing.T) {
	h := &mockHermes{}
	b := New(&mockRunner{}, h, nil, Options{QueueSize: 1}, discardLogger())

	_, err := b.Submit(hermes.AnalysisRequestEvent{Text: "one"})
	require.NoError(t, err)
	_, err = b.Submit(hermes.AnalysisRequestEvent{Text: "two"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Len(t, h.subjects(), 1)
}

func TestBrokerCountsRunnerFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &mockRunner{err: analyzer.ErrEmptyDocument}
	b := New(r, &mockHermes{}, nil, Options{Workers: 1}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	_, err := b.Submit(hermes.AnalysisRequestEvent{Text: " "})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	b.Stop()
	assert.Equal(t, 0, b.Stats().Processed)
}

func TestBrokerIgnoresMalformedEvents(t *testing.T) {
	h := &mockHermes{}
	r := &mockRunner{}
	b := New(r, h, nil, Options{}, discardLogger())
	require.NoError(t, b.SetupSubscriptions())

	h.mu.Lock()
	handler := h.handlers[hermes.SubjectAnalysisRequest]
	h.mu.Unlock()
	handler(hermes.SubjectAnalysisRequest, []byte("{broken"))

	assert.Empty(t, h.subjects())
	assert.Len(t, b.queue, 0)
}

func TestBrokerPublishesStats(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &mockHermes{}
	b := New(&mockRunner{}, h, nil, Options{StatsInterval: 5 * time.Millisecond}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)

	require.Eventually(t, func() bool {
		for _, s := range h.subjects() {
			if s == hermes.SubjectBrokerStats {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	b.Stop()
	b.Stop()
}

func TestStatsAverage(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.AvgMs())
	assert.Equal(t, 150.0, Stats{Processed: 2, TotalTime: 300 * time.Millisecond}.AvgMs())
}
