package scoring

import (
	"math"
	"strings"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

// DefaultScore is used when no score can be found in a result.
const DefaultScore = 50.0

// EnrichmentTierWeights is the coarse per-tier weight injected into
// enriched results. It is deliberately separate from both the declared
// dimension weights and TierPointBudgets.
var EnrichmentTierWeights = map[dimension.Tier]float64{
	dimension.TierCore:       0.20,
	dimension.TierAdvanced:   0.10,
	dimension.TierStructural: 0.10,
	dimension.TierSupporting: 0.05,
}

// FallbackEnrichmentWeight applies to tiers missing from EnrichmentTierWeights.
const FallbackEnrichmentWeight = 0.05

// scorePaths lists where known dimensions report their score inside raw
// metrics when no top-level score is present.
var scorePaths = map[string][]string{
	"burstiness": {"sentence_burstiness", "score"},
	"perplexity": {"metrics", "overall_score"},
	"structure":  {"structural_score"},
}

// DimensionResult is the outcome of one dimension for one document.
// Structured results carry Metrics; results from external producers may
// carry an opaque Raw payload instead and are never enriched.
type DimensionResult struct {
	Dimension       string       `json:"dimension"`
	Available       bool         `json:"available"`
	Error           string       `json:"error,omitempty"`
	Metrics         sampling.Map `json:"metrics,omitempty"`
	Raw             interface{}  `json:"raw,omitempty"`
	Score           *float64     `json:"score,omitempty"`
	Recommendations []string     `json:"recommendations,omitempty"`
	SampleCount     int          `json:"sample_count,omitempty"`

	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// Enrichment is the uniform view injected by Enrich.
type Enrichment struct {
	Tier       dimension.Tier            `json:"tier"`
	Score      float64                   `json:"score"`
	Weight     float64                   `json:"weight"`
	Thresholds map[string]dimension.Band `json:"tier_thresholds"`
}

// Enriched reports whether Enrich injected tier, score and weight.
func (r DimensionResult) Enriched() bool {
	return r.Enrichment != nil
}

// Unavailable builds the result for a dimension that failed or timed out.
func Unavailable(name string, err error) DimensionResult {
	res := DimensionResult{Dimension: name}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// Enrich returns a copy of results where every available, structured
// entry carries tier, score, weight and rating thresholds. Failed entries
// and opaque payloads are passed through untouched. Entries that are
// already enriched are left as they are.
func Enrich(reg *dimension.Registry, results []DimensionResult) []DimensionResult {
	out := make([]DimensionResult, len(results))
	for i, r := range results {
		out[i] = r
		if r.Enriched() || !r.Available || r.Error != "" || r.Metrics == nil {
			continue
		}

		tier := dimension.TierUnknown
		thresholds := dimension.DefaultBands()
		if d, ok := reg.Get(r.Dimension); ok {
			tier = d.Tier()
			if bands := d.Tiers(); len(bands) > 0 {
				thresholds = bands
			}
		}

		out[i].Enrichment = &Enrichment{
			Tier:       tier,
			Score:      normalizeScore(extractScore(r)),
			Weight:     enrichmentWeight(tier),
			Thresholds: thresholds,
		}
	}
	return out
}

func enrichmentWeight(tier dimension.Tier) float64 {
	if w, ok := EnrichmentTierWeights[tier]; ok {
		return w
	}
	return FallbackEnrichmentWeight
}

// extractScore prefers the typed score, then a top-level score field,
// then the dimension's documented nested path.
func extractScore(r DimensionResult) float64 {
	if r.Score != nil {
		return *r.Score
	}
	if v, ok := r.Metrics.Number("overall_score"); ok {
		return v
	}
	if v, ok := r.Metrics.Number("score"); ok {
		return v
	}
	if path, ok := scorePaths[strings.ToLower(r.Dimension)]; ok {
		if v, ok := r.Metrics.Lookup(path...); ok {
			if n, ok := v.(sampling.Number); ok {
				return float64(n)
			}
		}
	}
	return DefaultScore
}

func normalizeScore(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultScore
	}
	return clamp(v, 0, 100)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
