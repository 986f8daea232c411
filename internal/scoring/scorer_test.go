package scoring

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/dimension/dimensiontest"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

func scored(name string, score float64, recs ...string) DimensionResult {
	return DimensionResult{
		Dimension:       name,
		Available:       true,
		Score:           float64Ptr(score),
		Metrics:         sampling.Map{},
		Recommendations: recs,
	}
}

func newScorer(t *testing.T, reg *dimension.Registry, targets Targets) *DualScorer {
	t.Helper()
	s, err := NewDualScorer(reg, targets, discardLogger())
	require.NoError(t, err)
	return s
}

func scenarioRegistry(t *testing.T) *dimension.Registry {
	t.Helper()
	reg := dimension.NewRegistry()
	require.NoError(t, reg.Register(dimensiontest.New("X", dimension.TierCore, 50, 0)))
	require.NoError(t, reg.Register(dimensiontest.New("Y", dimension.TierCore, 50, 0)))
	return reg
}

func TestScenarioATierScore(t *testing.T) {
	reg := scenarioRegistry(t)
	s := newScorer(t, reg, DefaultTargets())

	res := s.Score(Enrich(reg, []DimensionResult{scored("X", 80), scored("Y", 40)}))

	core, ok := res.Tier(dimension.TierCore)
	require.True(t, ok)
	assert.InDelta(t, 60.0, core.Score, 1e-9)
	assert.False(t, core.NoData)
	assert.InDelta(t, 74.0, core.MaxPoints, 1e-9)
	assert.InDelta(t, 44.4, core.Points, 1e-9)

	assert.Equal(t, 60.0, res.QualityScore)
	assert.Equal(t, 40.0, res.DetectionRisk)
	assert.Equal(t, 25.0, res.QualityGap)
	assert.Equal(t, 10.0, res.DetectionGap)
	assert.Equal(t, EffortSubstantial, res.EstimatedEffort)
	assert.Equal(t, "MIXED - Needs moderate work", res.QualityInterpretation)
	assert.Equal(t, "MEDIUM - May be flagged", res.DetectionInterpretation)

	for _, tier := range []dimension.Tier{dimension.TierAdvanced, dimension.TierSupporting, dimension.TierStructural} {
		ts, ok := res.Tier(tier)
		require.True(t, ok, "tier %s must still be listed", tier)
		assert.True(t, ts.NoData)
		assert.Equal(t, 0.0, ts.Score)
	}
}

func TestScenarioEFailedDimensionExcluded(t *testing.T) {
	reg := scenarioRegistry(t)
	s := newScorer(t, reg, DefaultTargets())

	results := Enrich(reg, []DimensionResult{
		scored("X", 80),
		Unavailable("Y", errors.New("analyze panicked")),
	})
	require.False(t, results[1].Enriched())

	res := s.Score(results)
	core, ok := res.Tier(dimension.TierCore)
	require.True(t, ok)
	assert.InDelta(t, 80.0, core.Score, 1e-9)
	assert.Len(t, core.Dimensions, 1)
	assert.Equal(t, []string{"Y"}, core.Unavailable)
	assert.Equal(t, 80.0, res.QualityScore)
}

func TestActionsRankedByROI(t *testing.T) {
	reg := scenarioRegistry(t)
	s := newScorer(t, reg, DefaultTargets())

	res := s.Score(Enrich(reg, []DimensionResult{scored("X", 80, "tighten X"), scored("Y", 40)}))
	require.Len(t, res.Improvements, 2)

	first, second := res.Improvements[0], res.Improvements[1]
	assert.Equal(t, "Y", first.Dimension)
	assert.Equal(t, 1, first.Priority)
	assert.Equal(t, "Improve Y", first.Action)
	assert.Equal(t, EffortHigh, first.EffortLevel)
	assert.Equal(t, ImpactHigh, first.ImpactLevel)
	assert.InDelta(t, 22.2, first.PotentialGain, 1e-9)
	assert.InDelta(t, 37.0, first.MaxScore, 1e-9)

	assert.Equal(t, "X", second.Dimension)
	assert.Equal(t, 2, second.Priority)
	assert.Equal(t, "tighten X", second.Action)

	assert.Len(t, res.PathToTarget, 2)
}

func TestPathToTargetIsMinimalPrefix(t *testing.T) {
	reg := scenarioRegistry(t)
	s := newScorer(t, reg, Targets{Quality: 70, Detection: 30})

	res := s.Score(Enrich(reg, []DimensionResult{scored("X", 80), scored("Y", 40)}))
	require.Len(t, res.PathToTarget, 1)
	assert.Equal(t, "Y", res.PathToTarget[0].Dimension)

	reached := newScorer(t, reg, Targets{Quality: 50, Detection: 30}).
		Score(Enrich(reg, []DimensionResult{scored("X", 80), scored("Y", 40)}))
	assert.Empty(t, reached.PathToTarget)
	assert.Equal(t, EffortMinimal, reached.EstimatedEffort)
}

func TestNoActionForSmallGaps(t *testing.T) {
	reg := dimension.NewRegistry()
	require.NoError(t, reg.Register(dimensiontest.New("structure", dimension.TierStructural, 100, 0)))
	s := newScorer(t, reg, DefaultTargets())

	// 10 point budget: score 96 leaves a 0.4 point gap.
	res := s.Score(Enrich(reg, []DimensionResult{scored("structure", 96)}))
	assert.Empty(t, res.Improvements)
}

func TestRankingProperties(t *testing.T) {
	names := []string{"formatting", "transition_marker", "structure", "burstiness", "perplexity", "voice", "lexical", "readability", "predictability"}
	tiers := []dimension.Tier{dimension.TierCore, dimension.TierAdvanced, dimension.TierStructural, dimension.TierCore, dimension.TierCore, dimension.TierSupporting, dimension.TierSupporting, dimension.TierSupporting, dimension.TierAdvanced}
	reg := dimension.NewRegistry()
	for i, n := range names {
		require.NoError(t, reg.Register(dimensiontest.New(n, tiers[i], float64(5+i), 0)))
	}
	s := newScorer(t, reg, DefaultTargets())

	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 100; iter++ {
		var results []DimensionResult
		for _, n := range names {
			if rng.Intn(8) == 0 {
				results = append(results, Unavailable(n, nil))
				continue
			}
			results = append(results, scored(n, rng.Float64()*100))
		}
		res := s.Score(Enrich(reg, results))

		assert.InDelta(t, 100.0, res.QualityScore+res.DetectionRisk, 1e-9)

		for i := range res.Improvements {
			assert.Equal(t, i+1, res.Improvements[i].Priority)
			if i > 0 {
				assert.GreaterOrEqual(t, res.Improvements[i-1].ROI(), res.Improvements[i].ROI())
			}
		}

		// Path is a prefix that stops as soon as the target is met.
		cumulative := res.QualityScore
		for i, a := range res.PathToTarget {
			assert.Equal(t, res.Improvements[i], a)
			assert.Less(t, cumulative, res.QualityTarget)
			cumulative += a.PotentialGain
		}
		if len(res.PathToTarget) < len(res.Improvements) {
			assert.GreaterOrEqual(t, cumulative, res.QualityTarget)
		}
	}
}

func TestScoreEmpty(t *testing.T) {
	s := newScorer(t, dimension.NewRegistry(), DefaultTargets())
	res := s.Score(nil)

	assert.Equal(t, 0.0, res.QualityScore)
	assert.Equal(t, 100.0, res.DetectionRisk)
	assert.Empty(t, res.Improvements)
	assert.Empty(t, res.PathToTarget)
	assert.Len(t, res.Tiers, 4)
	assert.Equal(t, EffortExtensive, res.EstimatedEffort)
}

func TestUnknownTierListedWithoutBudget(t *testing.T) {
	reg := scenarioRegistry(t)
	s := newScorer(t, reg, DefaultTargets())

	res := s.Score(Enrich(reg, []DimensionResult{scored("X", 50), scored("Y", 50), scored("external", 10)}))
	unknown, ok := res.Tier(dimension.TierUnknown)
	require.True(t, ok)
	assert.Equal(t, 0.0, unknown.MaxPoints)
	assert.Equal(t, 50.0, res.QualityScore)
	for _, a := range res.Improvements {
		assert.NotEqual(t, "external", a.Dimension)
	}
}

func TestDeclaredWeightSplitsTierBudget(t *testing.T) {
	reg := dimension.NewRegistry()
	require.NoError(t, reg.Register(dimensiontest.New("heavy", dimension.TierSupporting, 30, 0)))
	require.NoError(t, reg.Register(dimensiontest.New("light", dimension.TierSupporting, 10, 0)))
	s := newScorer(t, reg, DefaultTargets())

	res := s.Score(Enrich(reg, []DimensionResult{scored("heavy", 100), scored("light", 0)}))
	sup, _ := res.Tier(dimension.TierSupporting)
	require.Len(t, sup.Dimensions, 2)
	assert.InDelta(t, 34.5, sup.Dimensions[0].MaxPoints, 1e-9)
	assert.InDelta(t, 11.5, sup.Dimensions[1].MaxPoints, 1e-9)
	assert.Equal(t, 75.0, res.QualityScore)
}

func TestEstimateEffortPerDimension(t *testing.T) {
	tests := []struct {
		name string
		gap  float64
		want string
	}{
		{"formatting", 2.9, EffortLow},
		{"Formatting", 3, EffortMedium},
		{"burstiness", 3.9, EffortMedium},
		{"voice", 4, EffortHigh},
		{"predictability", 0.6, EffortHigh},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.name, tt.gap), func(t *testing.T) {
			assert.Equal(t, tt.want, estimateEffort(tt.name, tt.gap))
		})
	}
}

func TestPointImpact(t *testing.T) {
	assert.Equal(t, ImpactNone, pointImpact(0.99))
	assert.Equal(t, ImpactLow, pointImpact(1))
	assert.Equal(t, ImpactMedium, pointImpact(2))
	assert.Equal(t, ImpactHigh, pointImpact(4))
}

func TestInterpretationTables(t *testing.T) {
	quality := map[float64]string{
		95: "EXCEPTIONAL - Indistinguishable from human",
		85: "EXCELLENT - Minimal AI signatures",
		70: "GOOD - Natural with minor tells",
		50: "MIXED - Needs moderate work",
		30: "AI-LIKE - Substantial work needed",
		29: "OBVIOUS AI - Complete rewrite",
	}
	for score, want := range quality {
		assert.Equal(t, want, InterpretQuality(score))
	}
	detection := map[float64]string{
		70: "VERY HIGH - Will be flagged",
		50: "HIGH - Likely flagged",
		30: "MEDIUM - May be flagged",
		15: "LOW - Unlikely flagged",
		14: "VERY LOW - Safe",
	}
	for risk, want := range detection {
		assert.Equal(t, want, InterpretDetection(risk))
	}
}

func TestEstimateEffortLabels(t *testing.T) {
	assert.Equal(t, EffortMinimal, EstimateEffort(0))
	assert.Equal(t, EffortLight, EstimateEffort(4.9))
	assert.Equal(t, EffortModerate, EstimateEffort(5))
	assert.Equal(t, EffortSubstantial, EstimateEffort(15))
	assert.Equal(t, EffortExtensive, EstimateEffort(30))
}

func TestNewDualScorerRejectsTargets(t *testing.T) {
	for _, targets := range []Targets{{Quality: -1, Detection: 30}, {Quality: 85, Detection: 101}} {
		_, err := NewDualScorer(dimension.NewRegistry(), targets, discardLogger())
		var cerr *sampling.ConfigError
		assert.True(t, errors.As(err, &cerr), "targets %+v", targets)
	}
}
