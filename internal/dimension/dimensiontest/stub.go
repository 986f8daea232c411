// Package dimensiontest provides a configurable Dimension for tests.
package dimensiontest

import (
	"context"
	"sync"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

// Stub is a Dimension whose behavior is set through its fields.
type Stub struct {
	DimName   string
	DimWeight float64
	DimTier   dimension.Tier
	Desc      string

	// Metrics is returned from Analyze. When nil, Analyze returns a map
	// holding Score under "score".
	Metrics map[string]sampling.Value
	Score   float64
	Recs    []string
	Bands   map[string]dimension.Band

	AnalyzeErr error
	ScoreErr   error
	Panic      bool

	// Calls records the text of every Analyze call.
	Calls []string
	mu    sync.Mutex
}

// New returns a Stub that scores score.
func New(name string, tier dimension.Tier, weight, score float64) *Stub {
	return &Stub{DimName: name, DimTier: tier, DimWeight: weight, Score: score}
}

func (s *Stub) Name() string         { return s.DimName }
func (s *Stub) Weight() float64      { return s.DimWeight }
func (s *Stub) Tier() dimension.Tier { return s.DimTier }
func (s *Stub) Description() string  { return s.Desc }

func (s *Stub) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, text)
	s.mu.Unlock()
	if s.Panic {
		panic("stub analyze panic")
	}
	if s.AnalyzeErr != nil {
		return nil, s.AnalyzeErr
	}
	if s.Metrics != nil {
		out := make(sampling.Map, len(s.Metrics))
		for k, v := range s.Metrics {
			out[k] = v
		}
		return out, nil
	}
	return sampling.Map{"score": sampling.Number(s.Score)}, nil
}

func (s *Stub) CalculateScore(_ sampling.Map) (float64, error) {
	if s.ScoreErr != nil {
		return 0, s.ScoreErr
	}
	return s.Score, nil
}

func (s *Stub) Recommendations(_ float64, _ sampling.Map) []string {
	return s.Recs
}

func (s *Stub) Tiers() map[string]dimension.Band {
	if s.Bands != nil {
		return s.Bands
	}
	return dimension.DefaultBands()
}
