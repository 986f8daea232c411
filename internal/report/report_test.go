package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/dimension/dimensiontest"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
)

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	reg   *dimension.Registry
	input Input
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := dimension.NewRegistry()
	require.NoError(t, reg.Register(dimensiontest.New("perplexity", dimension.TierCore, 5, 0)))
	require.NoError(t, reg.Register(dimensiontest.New("burstiness", dimension.TierCore, 6, 0)))
	require.NoError(t, reg.Register(dimensiontest.New("predictability", dimension.TierAdvanced, 5, 0)))

	results := []scoring.DimensionResult{
		{Dimension: "perplexity", Available: true, Metrics: sampling.Map{"metrics": sampling.Map{"overall_score": sampling.Number(80)}}, Recommendations: []string{"Reduce AI vocabulary"}},
		{Dimension: "burstiness", Available: true, Metrics: sampling.Map{"sentence_burstiness": sampling.Map{"score": sampling.Number(45)}}, Recommendations: []string{"Increase sentence variation"}},
		{Dimension: "predictability", Available: true, Metrics: sampling.Map{"overall_score": sampling.Number(68.5)}, Recommendations: []string{"Vary sentence patterns"}},
	}
	return fixture{reg: reg, input: buildInput(t, reg, results)}
}

func buildInput(t *testing.T, reg *dimension.Registry, results []scoring.DimensionResult) Input {
	t.Helper()
	scorer, err := scoring.NewDualScorer(reg, scoring.DefaultTargets(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	enriched := scoring.Enrich(reg, results)
	return Input{
		DocumentPath:  "test.md",
		TotalWords:    1000,
		Results:       enriched,
		Score:         scorer.Score(enriched),
		ExecutionTime: 287 * time.Millisecond,
		Timestamp:     fixedTime,
	}
}

func TestGenerateMetadata(t *testing.T) {
	f := newFixture(t)
	rep := NewReporter(f.reg).Generate(f.input)

	md := rep.Metadata
	assert.Equal(t, "test.md", md.DocumentPath)
	assert.Equal(t, 3, md.DimensionsLoaded)
	assert.Equal(t, 3, md.DimensionsAvailable)
	assert.False(t, md.IsPartial)
	assert.Equal(t, []string{"perplexity", "burstiness", "predictability"}, md.Loaded)
	assert.Empty(t, md.NotLoaded)
	assert.Equal(t, 0.287, md.ExecutionSeconds)
	assert.Equal(t, fixedTime, md.Timestamp)
	assert.Nil(t, md.Failed)
}

func TestPartialAnalysis(t *testing.T) {
	f := newFixture(t)
	f.input.Available = []string{"perplexity", "burstiness", "predictability"}
	for i := 0; i < 9; i++ {
		f.input.Available = append(f.input.Available, fmt.Sprintf("extra%d", i))
	}
	rep := NewReporter(f.reg).Generate(f.input)

	assert.True(t, rep.Metadata.IsPartial)
	assert.Equal(t, 3, rep.Metadata.DimensionsLoaded)
	assert.Equal(t, 12, rep.Metadata.DimensionsAvailable)
	assert.Len(t, rep.Metadata.NotLoaded, 9)

	md := Markdown(rep)
	assert.Contains(t, strings.ToLower(md), "partial analysis")
	assert.Contains(t, md, "3 of 12")
	assert.Contains(t, Text(rep), "3 of 12")
}

func TestOverallGrade(t *testing.T) {
	f := newFixture(t)
	rep := NewReporter(f.reg).Generate(f.input)

	assert.Equal(t, f.input.Score.QualityScore, rep.Overall.Score)
	assert.Equal(t, Grade(rep.Overall.Score), rep.Overall.Grade)
	assert.Equal(t, f.input.Score.QualityInterpretation, rep.Overall.Assessment)
	assert.True(t, rep.Overall.Certified)
}

func TestGrade(t *testing.T) {
	cases := map[float64]string{
		95: "A", 90: "A", 85: "B", 80: "B", 75: "C", 70: "C",
		65: "D", 60: "D", 55: "F", 0: "F",
	}
	for score, want := range cases {
		assert.Equal(t, want, Grade(score), "score %v", score)
	}
}

func TestImpactLevel(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, ImpactNone},
		{95.1, ImpactNone},
		{95, ImpactLow},
		{85.1, ImpactLow},
		{85, ImpactMedium},
		{70.1, ImpactMedium},
		{70, ImpactHigh},
		{0, ImpactHigh},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ImpactLevel(c.score), "score %v", c.score)
	}
}

func TestTierBreakdown(t *testing.T) {
	f := newFixture(t)
	rep := NewReporter(f.reg).Generate(f.input)

	require.Len(t, rep.Tiers, 4)
	var core TierSummary
	for _, ts := range rep.Tiers {
		if ts.Tier == dimension.TierCore {
			core = ts
		}
	}
	require.Len(t, core.Dimensions, 2)
	assert.InDelta(t, 62.5, core.Score, 0.1)
	assert.Equal(t, "perplexity", core.Dimensions[0].Name)
	assert.Equal(t, "high", core.Dimensions[0].Rating)
	assert.Equal(t, ImpactMedium, core.Dimensions[0].Impact)
	assert.Equal(t, 5.0, core.Dimensions[0].Weight)
	assert.Equal(t, "medium", core.Dimensions[1].Rating)
	assert.Equal(t, ImpactHigh, core.Dimensions[1].Impact)
}

func TestPrioritizedRecommendations(t *testing.T) {
	f := newFixture(t)
	rep := NewReporter(f.reg).Generate(f.input)

	require.Len(t, rep.Recommendations, 3)
	first := rep.Recommendations[0]
	assert.Equal(t, "burstiness", first.Dimension)
	assert.Equal(t, ImpactHigh, first.Impact)
	assert.Equal(t, 24.0, first.Priority)
	assert.Equal(t, dimension.TierCore, first.Tier)
	assert.Equal(t, "Increase sentence variation", first.Recommendation)

	assert.Equal(t, "predictability", rep.Recommendations[1].Dimension)
	assert.Equal(t, 20.0, rep.Recommendations[1].Priority)
	assert.Equal(t, "perplexity", rep.Recommendations[2].Dimension)
	assert.Equal(t, 15.0, rep.Recommendations[2].Priority)
}

func TestRecommendationsSkipEmptyAndFailed(t *testing.T) {
	f := newFixture(t)
	results := append([]scoring.DimensionResult(nil), f.input.Results...)
	results[0] = scoring.Unavailable("perplexity", errors.New("Test error"))
	results[2].Recommendations = nil
	in := buildInput(t, f.reg, results)
	rep := NewReporter(f.reg).Generate(in)

	require.Len(t, rep.Recommendations, 1)
	assert.Equal(t, "burstiness", rep.Recommendations[0].Dimension)
	assert.Equal(t, map[string]string{"perplexity": "Test error"}, rep.Metadata.Failed)

	for _, ts := range rep.Tiers {
		if ts.Tier != dimension.TierCore {
			continue
		}
		assert.Equal(t, 45.0, ts.Score)
		assert.Equal(t, []string{"perplexity"}, ts.Unavailable)
	}
	assert.Contains(t, Markdown(rep), "perplexity: Test error")
	assert.Contains(t, Text(rep), "perplexity: Test error")
}

func TestWeightDistribution(t *testing.T) {
	reg := dimension.NewRegistry()
	require.NoError(t, reg.Register(dimensiontest.New("a", dimension.TierCore, 50, 0)))
	require.NoError(t, reg.Register(dimensiontest.New("b", dimension.TierAdvanced, 50, 0)))
	wd := NewReporter(reg).Generate(Input{}).Weights

	assert.False(t, wd.IsNormalized)
	assert.Equal(t, 100.0, wd.TotalBeforeNormalization)
	assert.Equal(t, 50.0, wd.ByTier[dimension.TierCore])
	assert.Equal(t, 50.0, wd.ByTier[dimension.TierAdvanced])
	assert.Len(t, wd.ByDimension, 2)
}

func TestWeightNormalization(t *testing.T) {
	reg := dimension.NewRegistry()
	require.NoError(t, reg.Register(dimensiontest.New("a", dimension.TierCore, 30, 0)))
	require.NoError(t, reg.Register(dimensiontest.New("b", dimension.TierAdvanced, 20, 0)))
	wd := NewReporter(reg).Generate(Input{}).Weights

	assert.True(t, wd.IsNormalized)
	assert.Equal(t, 50.0, wd.TotalBeforeNormalization)
	assert.InDelta(t, 60.0, wd.ByTier[dimension.TierCore], 0.01)
	assert.InDelta(t, 40.0, wd.ByTier[dimension.TierAdvanced], 0.01)
	assert.InDelta(t, 60.0, wd.ByDimension["a"], 0.01)
}

func TestUncertifiedReportCarriesSuggestion(t *testing.T) {
	f := newFixture(t)
	m, err := scoring.NewWeightMediator(f.reg, scoring.DefaultTolerance)
	require.NoError(t, err)
	v := m.Report()
	require.False(t, v.IsValid)
	f.input.Validation = &v

	rep := NewReporter(f.reg).Generate(f.input)
	assert.False(t, rep.Overall.Certified)
	require.NotNil(t, rep.WeightIssues)
	assert.InDelta(t, 100.0, sumWeights(rep.WeightIssues.SuggestedRebalancing), 1e-9)

	for _, out := range []string{Markdown(rep), Text(rep)} {
		assert.Contains(t, out, "not certified")
		assert.Contains(t, out, "invalid_total")
	}
}

func sumWeights(m map[string]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

func TestRenderersAreContentEquivalent(t *testing.T) {
	f := newFixture(t)
	rep := NewReporter(f.reg).Generate(f.input)

	var js bytes.Buffer
	require.NoError(t, Render(&js, rep, FormatJSON))
	var decoded Report
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, *rep, decoded)

	md := Markdown(rep)
	text := Text(rep)

	facts := []string{
		"test.md",
		fmt.Sprintf("%.1f/100 (Grade %s)", rep.Overall.Score, rep.Overall.Grade),
		rep.Overall.Assessment,
		rep.Overall.DetectionAssessment,
		rep.Overall.EstimatedEffort,
		"2026-03-14T09:30:00Z",
	}
	for _, ts := range rep.Tiers {
		for _, d := range ts.Dimensions {
			facts = append(facts, d.Name, fmt.Sprintf("%.1f", d.Score), d.Rating)
		}
	}
	for _, r := range rep.Recommendations {
		facts = append(facts, r.Recommendation, fmt.Sprintf("priority %.1f", r.Priority))
	}
	for name, w := range rep.Weights.ByDimension {
		facts = append(facts, name, fmt.Sprintf("%.2f", w))
	}

	p := rep.Plan
	require.NotEmpty(t, p.PathToTarget)
	facts = append(facts,
		fmt.Sprintf("%.1f, target %.1f, gap %.1f", rep.Overall.Score, p.QualityTarget, p.QualityGap),
		fmt.Sprintf("%.1f, target %.1f, gap %.1f", rep.Overall.DetectionRisk, p.DetectionTarget, p.DetectionGap),
		fmt.Sprintf("Projected quality after path: %.1f", p.ProjectedQuality),
	)
	for _, a := range append(append([]scoring.ImprovementAction{}, p.PathToTarget...), p.Remaining...) {
		facts = append(facts, a.Dimension, a.Action, fmt.Sprintf("+%.1f", a.PotentialGain), a.EffortLevel)
	}
	for _, fact := range facts {
		assert.Contains(t, md, fact, "markdown")
		assert.Contains(t, text, fact, "text")
	}

	// Per-dimension recommendations appear inside the tier breakdown.
	assert.Contains(t, md, "- *burstiness:* Increase sentence variation")
	assert.Contains(t, text, "    - Increase sentence variation")
	assert.Contains(t, md, "### Path to Target")
	assert.Contains(t, text, "PATH TO TARGET:")
}

func TestImprovementPlan(t *testing.T) {
	f := newFixture(t)
	rep := NewReporter(f.reg).Generate(f.input)
	score := f.input.Score
	p := rep.Plan

	assert.Equal(t, scoring.DefaultQualityTarget, p.QualityTarget)
	assert.Equal(t, scoring.DefaultDetectionTarget, p.DetectionTarget)
	assert.Equal(t, score.QualityGap, p.QualityGap)
	assert.Equal(t, score.DetectionGap, p.DetectionGap)
	assert.Equal(t, score.PathToTarget, p.PathToTarget)
	assert.Len(t, p.Remaining, len(score.Improvements)-len(score.PathToTarget))

	projected := score.QualityScore
	for _, a := range p.PathToTarget {
		projected += a.PotentialGain
	}
	assert.InDelta(t, math.Min(100, projected), p.ProjectedQuality, 0.05)
}

func TestRenderersCarryWeightValidation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register(dimensiontest.New("voice", dimension.TierSupporting, 0, 0)))
	m, err := scoring.NewWeightMediator(f.reg, scoring.DefaultTolerance)
	require.NoError(t, err)
	v := m.Report()
	require.False(t, v.IsValid)
	require.NotEmpty(t, v.Warnings)
	f.input.Validation = &v

	rep := NewReporter(f.reg).Generate(f.input)
	require.NotNil(t, rep.WeightIssues)
	md, text := Markdown(rep), Text(rep)

	facts := []string{
		fmt.Sprintf("difference %+.2f", v.Difference),
		fmt.Sprintf("across %d dimensions", v.DimensionCount),
	}
	for _, w := range v.Warnings {
		facts = append(facts, w)
	}
	for _, tier := range dimension.Tiers {
		tw := v.DimensionsByTier[tier]
		facts = append(facts, fmt.Sprintf("%.2f", tw.TotalWeight), fmt.Sprintf("%d (%s)", tw.DimensionCount, joinOrNone(tw.Dimensions)))
	}
	for _, fact := range facts {
		assert.Contains(t, md, fact, "markdown")
		assert.Contains(t, text, fact, "text")
	}
}

func TestMarkdownStructure(t *testing.T) {
	f := newFixture(t)
	md := Markdown(NewReporter(f.reg).Generate(f.input))
	for _, want := range []string{
		"# AI Pattern Analysis Report",
		"## Overall Assessment",
		"## Dimension Analysis by Tier",
		"## Prioritized Recommendations",
		"## Weight Distribution",
		"| Dimension | Score | Rating | Weight | Impact |",
		"|:----------|------:|:------:|-------:|:------:|",
		"### CORE Tier (Score:",
	} {
		assert.Contains(t, md, want)
	}
}

func TestTextStructure(t *testing.T) {
	f := newFixture(t)
	text := Text(NewReporter(f.reg).Generate(f.input))
	for _, want := range []string{
		"=== AI Pattern Analysis Results ===",
		"File: test.md",
		"Overall Score:",
		"--- Dimension Scores ---",
		"--- Recommendations ---",
		"--- Weight Distribution ---",
		"===================================",
		"CORE Tier (Score:",
		"ADVANCED Tier (Score:",
		"SUPPORTING Tier (no data)",
	} {
		assert.Contains(t, text, want)
	}
}

func TestJSONLayout(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, NewReporter(f.reg).Generate(f.input)))

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	for _, key := range []string{"metadata", "overall", "tier_breakdown", "recommendations", "improvement_plan", "weight_distribution"} {
		assert.Contains(t, generic, key)
	}
	assert.NotContains(t, generic, "weight_validation")
	assert.Contains(t, buf.String(), "\n  \"metadata\"")
}

func TestEmptyRegistry(t *testing.T) {
	reg := dimension.NewRegistry()
	in := buildInput(t, reg, nil)
	rep := NewReporter(reg).Generate(in)

	assert.Equal(t, 0, rep.Metadata.DimensionsLoaded)
	assert.False(t, rep.Metadata.IsPartial)
	assert.Empty(t, rep.Recommendations)
	assert.Empty(t, rep.Weights.ByDimension)
	assert.False(t, rep.Weights.IsNormalized)
	assert.Equal(t, "F", rep.Overall.Grade)

	for _, f := range []Format{FormatJSON, FormatMarkdown, FormatText} {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, rep, f), f)
		assert.NotEmpty(t, buf.String())
	}
	assert.Contains(t, Markdown(rep), "No recommendations.")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "md": FormatMarkdown, "markdown": FormatMarkdown, "text": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
	assert.Equal(t, "text/markdown; charset=utf-8", FormatMarkdown.ContentType())
}
