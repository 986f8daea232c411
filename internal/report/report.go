package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
)

// Impact bands measured on a dimension's gap from 100. These are finer
// than the point bands used by the dual scorer.
const (
	ImpactNone   = "NONE"
	ImpactLow    = "LOW"
	ImpactMedium = "MEDIUM"
	ImpactHigh   = "HIGH"
)

var impactWeight = map[string]float64{
	ImpactNone:   1,
	ImpactLow:    2,
	ImpactMedium: 3,
	ImpactHigh:   4,
}

// Input is everything needed to build one report.
type Input struct {
	DocumentPath string
	TotalWords   int
	Results      []scoring.DimensionResult
	Score        scoring.DualScoreResult
	// Available lists every dimension that could have been loaded. When
	// empty, the loaded set is assumed to be complete.
	Available     []string
	Validation    *scoring.ValidationReport
	ExecutionTime time.Duration
	Timestamp     time.Time
}

// Report is the comprehensive, renderer-independent view of one analysis.
type Report struct {
	Metadata        Metadata                  `json:"metadata"`
	Overall         Overall                   `json:"overall"`
	Tiers           []TierSummary             `json:"tier_breakdown"`
	Recommendations []Recommendation          `json:"recommendations"`
	Plan            ImprovementPlan           `json:"improvement_plan"`
	Weights         WeightDistribution        `json:"weight_distribution"`
	WeightIssues    *scoring.ValidationReport `json:"weight_validation,omitempty"`
}

type Metadata struct {
	DocumentPath        string            `json:"file_path"`
	TotalWords          int               `json:"total_words"`
	DimensionsLoaded    int               `json:"dimensions_loaded"`
	DimensionsAvailable int               `json:"dimensions_available"`
	IsPartial           bool              `json:"is_partial_analysis"`
	Loaded              []string          `json:"loaded_dimensions"`
	NotLoaded           []string          `json:"not_loaded_dimensions"`
	Failed              map[string]string `json:"failed_dimensions,omitempty"`
	ExecutionSeconds    float64           `json:"execution_time"`
	Timestamp           time.Time         `json:"analysis_timestamp"`
}

type Overall struct {
	Score               float64 `json:"score"`
	Grade               string  `json:"grade"`
	Assessment          string  `json:"assessment"`
	DetectionRisk       float64 `json:"detection_risk"`
	DetectionAssessment string  `json:"detection_assessment"`
	EstimatedEffort     string  `json:"estimated_effort"`
	// Certified is false when the weight set failed validation.
	Certified bool `json:"certified"`
}

type TierSummary struct {
	Tier        dimension.Tier     `json:"tier"`
	Score       float64            `json:"tier_score"`
	NoData      bool               `json:"no_data"`
	Dimensions  []DimensionSummary `json:"dimensions"`
	Unavailable []string           `json:"unavailable,omitempty"`
}

type DimensionSummary struct {
	Name            string   `json:"name"`
	Score           float64  `json:"score"`
	Rating          string   `json:"rating"`
	Weight          float64  `json:"weight"`
	Impact          string   `json:"impact_level"`
	Recommendations []string `json:"recommendations,omitempty"`
}

type Recommendation struct {
	Priority       float64        `json:"priority"`
	Dimension      string         `json:"dimension"`
	Tier           dimension.Tier `json:"tier"`
	Impact         string         `json:"impact_level"`
	Weight         float64        `json:"weight"`
	Recommendation string         `json:"recommendation"`
}

// ImprovementPlan is the gap to the targets and the ROI-ranked actions
// that close it. PathToTarget is the shortest ranked prefix that reaches
// the quality target; Remaining holds the actions after it.
type ImprovementPlan struct {
	QualityTarget    float64                     `json:"quality_target"`
	DetectionTarget  float64                     `json:"detection_target"`
	QualityGap       float64                     `json:"quality_gap"`
	DetectionGap     float64                     `json:"detection_gap"`
	ProjectedQuality float64                     `json:"projected_quality"`
	PathToTarget     []scoring.ImprovementAction `json:"path_to_target"`
	Remaining        []scoring.ImprovementAction `json:"other_improvements"`
}

// WeightDistribution is the declared weight share per tier and dimension.
// When the loaded set does not sum to 100 the shares are rescaled and the
// original total is kept in TotalBeforeNormalization.
type WeightDistribution struct {
	ByTier                   map[dimension.Tier]float64 `json:"by_tier"`
	ByDimension              map[string]float64         `json:"by_dimension"`
	IsNormalized             bool                       `json:"is_normalized"`
	TotalBeforeNormalization float64                    `json:"total_weight_before_normalization"`
}

// Reporter builds reports against a registry.
type Reporter struct {
	registry *dimension.Registry
}

func NewReporter(reg *dimension.Registry) *Reporter {
	return &Reporter{registry: reg}
}

// Generate builds the comprehensive report. It never fails: missing data
// yields empty sections.
func (r *Reporter) Generate(in Input) *Report {
	rep := &Report{
		Metadata:        r.metadata(in),
		Overall:         overall(in),
		Tiers:           r.tiers(in),
		Recommendations: r.recommendations(in.Results),
		Plan:            plan(in.Score),
		Weights:         r.weights(),
	}
	if in.Validation != nil && !in.Validation.IsValid {
		rep.WeightIssues = in.Validation
	}
	return rep
}

func (r *Reporter) metadata(in Input) Metadata {
	loaded := r.registry.Names()
	available := in.Available
	if len(available) == 0 {
		available = loaded
	}

	var notLoaded []string
	for _, name := range available {
		if !r.registry.Has(name) {
			notLoaded = append(notLoaded, name)
		}
	}

	md := Metadata{
		DocumentPath:        in.DocumentPath,
		TotalWords:          in.TotalWords,
		DimensionsLoaded:    len(loaded),
		DimensionsAvailable: len(available),
		IsPartial:           len(loaded) < len(available),
		Loaded:              nonNil(loaded),
		NotLoaded:           nonNil(notLoaded),
		ExecutionSeconds:    math.Round(in.ExecutionTime.Seconds()*1000) / 1000,
		Timestamp:           in.Timestamp,
	}
	for _, res := range in.Results {
		if res.Enriched() {
			continue
		}
		if md.Failed == nil {
			md.Failed = make(map[string]string)
		}
		reason := res.Error
		if reason == "" {
			reason = "unavailable"
		}
		md.Failed[res.Dimension] = reason
	}
	return md
}

func overall(in Input) Overall {
	return Overall{
		Score:               in.Score.QualityScore,
		Grade:               Grade(in.Score.QualityScore),
		Assessment:          in.Score.QualityInterpretation,
		DetectionRisk:       in.Score.DetectionRisk,
		DetectionAssessment: in.Score.DetectionInterpretation,
		EstimatedEffort:     in.Score.EstimatedEffort,
		Certified:           in.Validation == nil || in.Validation.IsValid,
	}
}

func plan(score scoring.DualScoreResult) ImprovementPlan {
	p := ImprovementPlan{
		QualityTarget:    score.QualityTarget,
		DetectionTarget:  score.DetectionTarget,
		QualityGap:       score.QualityGap,
		DetectionGap:     score.DetectionGap,
		ProjectedQuality: score.QualityScore,
		PathToTarget:     []scoring.ImprovementAction{},
		Remaining:        []scoring.ImprovementAction{},
	}
	onPath := make(map[string]bool, len(score.PathToTarget))
	for _, a := range score.PathToTarget {
		p.PathToTarget = append(p.PathToTarget, a)
		p.ProjectedQuality += a.PotentialGain
		onPath[a.Dimension] = true
	}
	p.ProjectedQuality = round1(math.Min(100, p.ProjectedQuality))
	for _, a := range score.Improvements {
		if !onPath[a.Dimension] {
			p.Remaining = append(p.Remaining, a)
		}
	}
	return p
}

func (r *Reporter) tiers(in Input) []TierSummary {
	byName := make(map[string]scoring.DimensionResult, len(in.Results))
	for _, res := range in.Results {
		byName[strings.ToLower(res.Dimension)] = res
	}

	out := make([]TierSummary, 0, len(in.Score.Tiers))
	for _, t := range in.Score.Tiers {
		ts := TierSummary{
			Tier:        t.Tier,
			Score:       round1(t.Score),
			NoData:      t.NoData,
			Dimensions:  make([]DimensionSummary, 0, len(t.Dimensions)),
			Unavailable: t.Unavailable,
		}
		for _, d := range t.Dimensions {
			res := byName[strings.ToLower(d.Name)]
			bands := dimension.DefaultBands()
			if res.Enrichment != nil && len(res.Enrichment.Thresholds) > 0 {
				bands = res.Enrichment.Thresholds
			}
			ts.Dimensions = append(ts.Dimensions, DimensionSummary{
				Name:            d.Name,
				Score:           round1(d.Score),
				Rating:          dimension.Rating(bands, d.Score),
				Weight:          d.DeclaredWeight,
				Impact:          ImpactLevel(d.Score),
				Recommendations: res.Recommendations,
			})
		}
		out = append(out, ts)
	}
	return out
}

func (r *Reporter) recommendations(results []scoring.DimensionResult) []Recommendation {
	recs := []Recommendation{}
	for _, res := range results {
		if !res.Enriched() {
			continue
		}
		impact := ImpactLevel(res.Enrichment.Score)
		weight := 0.0
		if d, ok := r.registry.Get(res.Dimension); ok {
			weight = d.Weight()
		}
		for _, text := range res.Recommendations {
			if strings.TrimSpace(text) == "" {
				continue
			}
			recs = append(recs, Recommendation{
				Priority:       impactWeight[impact] * weight,
				Dimension:      res.Dimension,
				Tier:           res.Enrichment.Tier,
				Impact:         impact,
				Weight:         weight,
				Recommendation: text,
			})
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})
	return recs
}

func (r *Reporter) weights() WeightDistribution {
	wd := WeightDistribution{
		ByTier:      make(map[dimension.Tier]float64),
		ByDimension: make(map[string]float64),
	}
	var total float64
	for _, d := range r.registry.All() {
		total += d.Weight()
	}
	wd.TotalBeforeNormalization = total

	scale := 1.0
	if total > 0 && math.Abs(total-scoring.ExpectedTotalWeight) > 1e-9 {
		scale = scoring.ExpectedTotalWeight / total
		wd.IsNormalized = true
	}
	for _, d := range r.registry.All() {
		w := d.Weight() * scale
		wd.ByDimension[d.Name()] = round2(w)
		wd.ByTier[d.Tier()] += w
	}
	for t, w := range wd.ByTier {
		wd.ByTier[t] = round2(w)
	}
	return wd
}

// Grade maps a quality score onto A to F.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// ImpactLevel bands the gap between score and 100.
func ImpactLevel(score float64) string {
	gap := 100 - score
	switch {
	case gap < 5:
		return ImpactNone
	case gap < 15:
		return ImpactLow
	case gap < 30:
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
