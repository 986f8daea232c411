package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

// TierPointBudgets is the number of quality points each tier can earn.
// A tier's budget is split across its dimensions by declared weight.
var TierPointBudgets = map[dimension.Tier]float64{
	dimension.TierAdvanced:   70,
	dimension.TierCore:       74,
	dimension.TierSupporting: 46,
	dimension.TierStructural: 10,
}

const (
	DefaultDetectionTarget = 30.0
	DefaultQualityTarget   = 85.0

	// minActionGap is the smallest point gap worth an improvement action.
	minActionGap = 0.5
)

// Impact, effort and overall-effort labels.
const (
	ImpactNone   = "NONE"
	ImpactLow    = "LOW"
	ImpactMedium = "MEDIUM"
	ImpactHigh   = "HIGH"

	EffortLow    = "LOW"
	EffortMedium = "MEDIUM"
	EffortHigh   = "HIGH"

	EffortMinimal     = "MINIMAL"
	EffortLight       = "LIGHT"
	EffortModerate    = "MODERATE"
	EffortSubstantial = "SUBSTANTIAL"
	EffortExtensive   = "EXTENSIVE"
)

var effortMultiplier = map[string]float64{
	EffortLow:    1.0,
	EffortMedium: 0.7,
	EffortHigh:   0.4,
}

var (
	easyFixes   = map[string]bool{"formatting": true, "transition_marker": true, "structure": true}
	mediumFixes = map[string]bool{"burstiness": true, "perplexity": true, "voice": true}
)

// DimensionScore is one dimension's contribution to the dual score.
type DimensionScore struct {
	Name           string         `json:"name"`
	Tier           dimension.Tier `json:"tier"`
	Score          float64        `json:"score"`
	Weight         float64        `json:"weight"`
	DeclaredWeight float64        `json:"declared_weight"`
	Points         float64        `json:"points"`
	MaxPoints      float64        `json:"max_points"`
	Gap            float64        `json:"gap"`
	Impact         string         `json:"impact"`
	Recommendation string         `json:"recommendation,omitempty"`
}

// TierScore aggregates the scored dimensions of one tier.
type TierScore struct {
	Tier        dimension.Tier   `json:"tier"`
	Score       float64          `json:"score"`
	NoData      bool             `json:"no_data"`
	Points      float64          `json:"points"`
	MaxPoints   float64          `json:"max_points"`
	Dimensions  []DimensionScore `json:"dimensions"`
	Unavailable []string         `json:"unavailable,omitempty"`
}

// ImprovementAction is one ranked remediation step.
type ImprovementAction struct {
	Priority      int     `json:"priority"`
	Dimension     string  `json:"dimension"`
	CurrentScore  float64 `json:"current_score"`
	MaxScore      float64 `json:"max_score"`
	PotentialGain float64 `json:"potential_gain"`
	ImpactLevel   string  `json:"impact_level"`
	EffortLevel   string  `json:"effort_level"`
	Action        string  `json:"action"`
}

// ROI is the ranking key: potential gain discounted by effort.
func (a ImprovementAction) ROI() float64 {
	return a.PotentialGain * effortMultiplier[a.EffortLevel]
}

// DualScoreResult is the overall assessment of one document.
// QualityScore + DetectionRisk is always 100.
type DualScoreResult struct {
	QualityScore            float64             `json:"quality_score"`
	DetectionRisk           float64             `json:"detection_risk"`
	QualityTarget           float64             `json:"quality_target"`
	DetectionTarget         float64             `json:"detection_target"`
	QualityGap              float64             `json:"quality_gap"`
	DetectionGap            float64             `json:"detection_gap"`
	QualityInterpretation   string              `json:"quality_interpretation"`
	DetectionInterpretation string              `json:"detection_interpretation"`
	Tiers                   []TierScore         `json:"tiers"`
	Improvements            []ImprovementAction `json:"improvements"`
	PathToTarget            []ImprovementAction `json:"path_to_target"`
	EstimatedEffort         string              `json:"estimated_effort"`
	Timestamp               time.Time           `json:"timestamp"`
}

// Tier returns the aggregate for tier, if present.
func (r DualScoreResult) Tier(tier dimension.Tier) (TierScore, bool) {
	for _, t := range r.Tiers {
		if t.Tier == tier {
			return t, true
		}
	}
	return TierScore{}, false
}

// Targets are the goals the dual score is measured against.
type Targets struct {
	Quality   float64
	Detection float64
}

// DefaultTargets returns quality 85 and detection 30.
func DefaultTargets() Targets {
	return Targets{Quality: DefaultQualityTarget, Detection: DefaultDetectionTarget}
}

// DualScorer folds enriched dimension results into a quality score, a
// detection risk and a ranked improvement plan.
type DualScorer struct {
	registry *dimension.Registry
	targets  Targets
	logger   *slog.Logger
	now      func() time.Time
}

// NewDualScorer validates targets and returns a scorer.
func NewDualScorer(reg *dimension.Registry, targets Targets, logger *slog.Logger) (*DualScorer, error) {
	if targets.Quality < 0 || targets.Quality > 100 {
		return nil, &sampling.ConfigError{Field: "quality_target", Value: targets.Quality, Reason: "must be between 0 and 100"}
	}
	if targets.Detection < 0 || targets.Detection > 100 {
		return nil, &sampling.ConfigError{Field: "detection_target", Value: targets.Detection, Reason: "must be between 0 and 100"}
	}
	return &DualScorer{
		registry: reg,
		targets:  targets,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Targets returns the configured targets.
func (s *DualScorer) Targets() Targets {
	return s.targets
}

// Score aggregates enriched results. Entries without enrichment are
// excluded from every mean but listed as unavailable under their tier.
func (s *DualScorer) Score(results []DimensionResult) DualScoreResult {
	tiers := s.buildTiers(results)

	var points, maxPoints float64
	var dims []DimensionScore
	for _, t := range tiers {
		points += t.Points
		maxPoints += t.MaxPoints
		dims = append(dims, t.Dimensions...)
	}

	quality := 0.0
	if maxPoints > 0 {
		quality = round1(100 * points / maxPoints)
	}
	risk := 100 - quality

	out := DualScoreResult{
		QualityScore:            quality,
		DetectionRisk:           risk,
		QualityTarget:           s.targets.Quality,
		DetectionTarget:         s.targets.Detection,
		QualityGap:              round1(math.Max(0, s.targets.Quality-quality)),
		DetectionGap:            round1(math.Max(0, risk-s.targets.Detection)),
		QualityInterpretation:   InterpretQuality(quality),
		DetectionInterpretation: InterpretDetection(risk),
		Tiers:                   tiers,
		Timestamp:               s.now(),
	}

	out.Improvements = rankActions(dims)
	out.PathToTarget = pathToTarget(out.Improvements, quality, s.targets.Quality)
	out.EstimatedEffort = EstimateEffort(out.QualityGap)

	s.logger.Debug("dual score computed",
		"quality", out.QualityScore,
		"detection_risk", out.DetectionRisk,
		"actions", len(out.Improvements),
		"path_length", len(out.PathToTarget),
	)
	return out
}

func (s *DualScorer) buildTiers(results []DimensionResult) []TierScore {
	byTier := make(map[dimension.Tier][]DimensionResult)
	unavailable := make(map[dimension.Tier][]string)
	hasUnknown := false

	for _, r := range results {
		if !r.Enriched() {
			tier := dimension.TierUnknown
			if d, ok := s.registry.Get(r.Dimension); ok {
				tier = d.Tier()
			}
			unavailable[tier] = append(unavailable[tier], r.Dimension)
			if tier == dimension.TierUnknown {
				hasUnknown = true
			}
			continue
		}
		if r.Enrichment.Tier == dimension.TierUnknown {
			hasUnknown = true
		}
		byTier[r.Enrichment.Tier] = append(byTier[r.Enrichment.Tier], r)
	}

	order := append([]dimension.Tier(nil), dimension.Tiers...)
	if hasUnknown {
		order = append(order, dimension.TierUnknown)
	}

	tiers := make([]TierScore, 0, len(order))
	for _, tier := range order {
		ts := s.scoreTier(tier, byTier[tier])
		ts.Unavailable = unavailable[tier]
		tiers = append(tiers, ts)
	}
	return tiers
}

func (s *DualScorer) scoreTier(tier dimension.Tier, members []DimensionResult) TierScore {
	ts := TierScore{Tier: tier, Dimensions: []DimensionScore{}}
	if len(members) == 0 {
		ts.NoData = true
		return ts
	}

	budget := TierPointBudgets[tier]
	declared := make([]float64, len(members))
	var declaredSum float64
	for i, r := range members {
		if d, ok := s.registry.Get(r.Dimension); ok && d.Weight() > 0 {
			declared[i] = d.Weight()
		}
		declaredSum += declared[i]
	}

	var weighted, weightSum float64
	for i, r := range members {
		e := r.Enrichment
		weighted += e.Score * e.Weight
		weightSum += e.Weight

		share := 1.0 / float64(len(members))
		if declaredSum > 0 {
			share = declared[i] / declaredSum
		}
		maxPts := budget * share
		pts := e.Score / 100 * maxPts
		gap := maxPts - pts

		ds := DimensionScore{
			Name:           r.Dimension,
			Tier:           tier,
			Score:          e.Score,
			Weight:         e.Weight,
			DeclaredWeight: declared[i],
			Points:         pts,
			MaxPoints:      maxPts,
			Gap:            gap,
			Impact:         pointImpact(gap),
			Recommendation: firstRecommendation(r),
		}
		ts.Dimensions = append(ts.Dimensions, ds)
		ts.Points += pts
		ts.MaxPoints += maxPts
	}

	if weightSum > 0 {
		ts.Score = weighted / weightSum
	} else {
		ts.NoData = true
	}
	return ts
}

func firstRecommendation(r DimensionResult) string {
	for _, rec := range r.Recommendations {
		if strings.TrimSpace(rec) != "" {
			return rec
		}
	}
	return ""
}

// pointImpact bands a gap measured in quality points.
func pointImpact(gap float64) string {
	switch {
	case gap < 1:
		return ImpactNone
	case gap < 2:
		return ImpactLow
	case gap < 4:
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

// estimateEffort looks the dimension up in the fixed effort table and
// refines the level by gap size.
func estimateEffort(name string, gap float64) string {
	key := strings.ToLower(name)
	switch {
	case easyFixes[key]:
		if gap < 3 {
			return EffortLow
		}
		return EffortMedium
	case mediumFixes[key]:
		if gap < 4 {
			return EffortMedium
		}
		return EffortHigh
	default:
		return EffortHigh
	}
}

func rankActions(dims []DimensionScore) []ImprovementAction {
	actions := make([]ImprovementAction, 0, len(dims))
	for _, d := range dims {
		if d.Gap <= minActionGap {
			continue
		}
		text := d.Recommendation
		if text == "" {
			text = fmt.Sprintf("Improve %s", d.Name)
		}
		actions = append(actions, ImprovementAction{
			Dimension:     d.Name,
			CurrentScore:  d.Points,
			MaxScore:      d.MaxPoints,
			PotentialGain: d.Gap,
			ImpactLevel:   d.Impact,
			EffortLevel:   estimateEffort(d.Name, d.Gap),
			Action:        text,
		})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].ROI() > actions[j].ROI()
	})
	for i := range actions {
		actions[i].Priority = i + 1
	}
	return actions
}

// pathToTarget returns the shortest ranked prefix whose cumulative gain
// lifts quality to target, or every action if the target is unreachable.
func pathToTarget(actions []ImprovementAction, quality, target float64) []ImprovementAction {
	path := []ImprovementAction{}
	cumulative := quality
	for _, a := range actions {
		if cumulative >= target {
			break
		}
		path = append(path, a)
		cumulative += a.PotentialGain
	}
	return path
}

// EstimateEffort labels the work needed to close a quality gap.
func EstimateEffort(qualityGap float64) string {
	switch {
	case qualityGap <= 0:
		return EffortMinimal
	case qualityGap < 5:
		return EffortLight
	case qualityGap < 15:
		return EffortModerate
	case qualityGap < 30:
		return EffortSubstantial
	default:
		return EffortExtensive
	}
}

// InterpretQuality labels a quality score.
func InterpretQuality(score float64) string {
	switch {
	case score >= 95:
		return "EXCEPTIONAL - Indistinguishable from human"
	case score >= 85:
		return "EXCELLENT - Minimal AI signatures"
	case score >= 70:
		return "GOOD - Natural with minor tells"
	case score >= 50:
		return "MIXED - Needs moderate work"
	case score >= 30:
		return "AI-LIKE - Substantial work needed"
	default:
		return "OBVIOUS AI - Complete rewrite"
	}
}

// InterpretDetection labels a detection risk.
func InterpretDetection(risk float64) string {
	switch {
	case risk >= 70:
		return "VERY HIGH - Will be flagged"
	case risk >= 50:
		return "HIGH - Likely flagged"
	case risk >= 30:
		return "MEDIUM - May be flagged"
	case risk >= 15:
		return "LOW - Unlikely flagged"
	default:
		return "VERY LOW - Safe"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
