package dimensions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/inference"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

// PredictabilityPrefix is how much of a document the model inspects.
const PredictabilityPrefix = 2000

// Predictability is a GLTR-style signal: the share of tokens that a
// language model ranked among its top predictions. It needs a model
// backend and is the only dimension that blocks on I/O.
type Predictability struct {
	info
	model   *inference.Handle
	timeout time.Duration
	logger  *slog.Logger
}

func NewPredictability(model *inference.Handle, timeout time.Duration, logger *slog.Logger) *Predictability {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictability{
		info: info{
			name:   "predictability",
			weight: 20,
			tier:   dimension.TierAdvanced,
			desc:   "Share of tokens a language model ranks in its top 10 (GLTR)",
		},
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// FixedPrefix opts out of sampling.
func (d *Predictability) FixedPrefix() int { return PredictabilityPrefix }

func (d *Predictability) Analyze(ctx context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	if d.model == nil {
		return nil, inference.ErrUnavailable
	}
	ranks, err := inference.BoundedCall(ctx, d.timeout, func(ctx context.Context) ([]inference.TokenRank, error) {
		m, err := d.model.Get(ctx)
		if err != nil {
			return nil, err
		}
		return m.TokenRanks(ctx, text)
	})
	if err != nil {
		if errors.Is(err, inference.ErrTimeout) {
			d.logger.Warn("predictability timed out", "timeout", d.timeout)
		}
		return nil, err
	}
	return rankMetrics(ranks), nil
}

func rankMetrics(ranks []inference.TokenRank) sampling.Map {
	var top10, top100, top1000 int
	for _, r := range ranks {
		switch {
		case r.Rank <= 10:
			top10++
		case r.Rank <= 100:
			top100++
		case r.Rank <= 1000:
			top1000++
		}
	}
	total := len(ranks)
	frac := func(n int) sampling.Number {
		if total == 0 {
			return 0
		}
		return sampling.Number(round2(float64(n) / float64(total)))
	}
	return sampling.Map{
		"tokens": sampling.Number(total),
		"gltr": sampling.Map{
			"top10":   frac(top10),
			"top100":  frac(top100),
			"top1000": frac(top1000),
			"rest":    frac(total - top10 - top100 - top1000),
		},
	}
}

// CalculateScore is 100 when at most half the tokens are top-10
// predictions and 0 from 80% up.
func (d *Predictability) CalculateScore(m sampling.Map) (float64, error) {
	tokens, _ := m.Number("tokens")
	if tokens == 0 {
		return 0, errors.New("predictability: no tokens scored")
	}
	v, _ := m.Lookup("gltr", "top10")
	top10, _ := v.(sampling.Number)
	return linear(float64(top10), 0.8, 0.5), nil
}

func (d *Predictability) Recommendations(score float64, _ sampling.Map) []string {
	if score >= 70 {
		return nil
	}
	return []string{"Replace predictable phrasing with specific, surprising word choices and concrete detail"}
}
