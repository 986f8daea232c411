package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts json, markdown (or md) and text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// ContentType is the HTTP content type of a rendered report.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render writes rep to w in the given format. All formats carry the same
// facts.
func Render(w io.Writer, rep *Report, f Format) error {
	switch f {
	case FormatJSON:
		return RenderJSON(w, rep)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(rep))
		return err
	case FormatText:
		_, err := io.WriteString(w, Text(rep))
		return err
	}
	return fmt.Errorf("unknown report format %q", f)
}

func RenderJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Markdown renders the narrative, table-based form.
func Markdown(rep *Report) string {
	var b strings.Builder
	md := rep.Metadata

	b.WriteString("# AI Pattern Analysis Report\n\n")
	if md.DocumentPath != "" {
		fmt.Fprintf(&b, "**File:** %s\n", md.DocumentPath)
	}
	fmt.Fprintf(&b, "**Analyzed:** %s\n", formatTime(md.Timestamp))
	fmt.Fprintf(&b, "**Words:** %d\n", md.TotalWords)
	fmt.Fprintf(&b, "**Execution time:** %.3fs\n", md.ExecutionSeconds)
	fmt.Fprintf(&b, "**Dimensions:** %d of %d loaded (%s)\n", md.DimensionsLoaded, md.DimensionsAvailable, joinOrNone(md.Loaded))
	if md.IsPartial {
		fmt.Fprintf(&b, "\n> **Note:** Partial analysis, %d of %d dimensions loaded. Not loaded: %s\n",
			md.DimensionsLoaded, md.DimensionsAvailable, joinOrNone(md.NotLoaded))
	}
	if len(md.Failed) > 0 {
		b.WriteString("\n> **Unavailable dimensions:**\n")
		for _, name := range sortedKeys(md.Failed) {
			fmt.Fprintf(&b, "> - %s: %s\n", name, md.Failed[name])
		}
	}

	o := rep.Overall
	b.WriteString("\n## Overall Assessment\n\n")
	fmt.Fprintf(&b, "- **Score:** %.1f/100 (Grade %s)\n", o.Score, o.Grade)
	fmt.Fprintf(&b, "- **Assessment:** %s\n", o.Assessment)
	fmt.Fprintf(&b, "- **Detection risk:** %.1f/100 (%s)\n", o.DetectionRisk, o.DetectionAssessment)
	fmt.Fprintf(&b, "- **Estimated effort:** %s\n", o.EstimatedEffort)
	fmt.Fprintf(&b, "- **Certified:** %s\n", yesNo(o.Certified))

	b.WriteString("\n## Dimension Analysis by Tier\n")
	for _, t := range rep.Tiers {
		if t.NoData {
			fmt.Fprintf(&b, "\n### %s Tier (no data)\n", t.Tier)
		} else {
			fmt.Fprintf(&b, "\n### %s Tier (Score: %.1f)\n", t.Tier, t.Score)
		}
		if len(t.Dimensions) > 0 {
			b.WriteString("\n| Dimension | Score | Rating | Weight | Impact |\n")
			b.WriteString("|:----------|------:|:------:|-------:|:------:|\n")
			for _, d := range t.Dimensions {
				fmt.Fprintf(&b, "| %s | %.1f | %s | %.2f | %s |\n", d.Name, d.Score, d.Rating, d.Weight, d.Impact)
			}
			first := true
			for _, d := range t.Dimensions {
				for _, rec := range d.Recommendations {
					if first {
						b.WriteString("\n")
						first = false
					}
					fmt.Fprintf(&b, "- *%s:* %s\n", d.Name, rec)
				}
			}
		}
		if len(t.Unavailable) > 0 {
			fmt.Fprintf(&b, "\nUnavailable: %s\n", strings.Join(t.Unavailable, ", "))
		}
	}

	b.WriteString("\n## Prioritized Recommendations\n\n")
	if len(rep.Recommendations) == 0 {
		b.WriteString("No recommendations.\n")
	}
	for i, r := range rep.Recommendations {
		fmt.Fprintf(&b, "%d. **%s** (%s, %s impact, weight %.2f, priority %.1f): %s\n",
			i+1, r.Dimension, r.Tier, r.Impact, r.Weight, r.Priority, r.Recommendation)
	}

	p := rep.Plan
	b.WriteString("\n## Improvement Plan\n\n")
	fmt.Fprintf(&b, "- **Quality:** %.1f, target %.1f, gap %.1f\n", rep.Overall.Score, p.QualityTarget, p.QualityGap)
	fmt.Fprintf(&b, "- **Detection risk:** %.1f, target %.1f, gap %.1f\n", rep.Overall.DetectionRisk, p.DetectionTarget, p.DetectionGap)
	fmt.Fprintf(&b, "- **Projected quality after path:** %.1f\n", p.ProjectedQuality)
	b.WriteString("\n### Path to Target\n\n")
	markdownActions(&b, p.PathToTarget)
	b.WriteString("\n### Other Improvements\n\n")
	markdownActions(&b, p.Remaining)

	wd := rep.Weights
	b.WriteString("\n## Weight Distribution\n\n")
	if wd.IsNormalized {
		fmt.Fprintf(&b, "Weights normalized to 100 (declared total %.2f).\n\n", wd.TotalBeforeNormalization)
	} else {
		fmt.Fprintf(&b, "Declared total %.2f.\n\n", wd.TotalBeforeNormalization)
	}
	b.WriteString("| Tier | Weight |\n|:-----|-------:|\n")
	for _, t := range tierOrder(wd.ByTier) {
		fmt.Fprintf(&b, "| %s | %.2f |\n", t, wd.ByTier[t])
	}
	b.WriteString("\n| Dimension | Weight |\n|:----------|-------:|\n")
	for _, name := range sortedKeys(wd.ByDimension) {
		fmt.Fprintf(&b, "| %s | %.2f |\n", name, wd.ByDimension[name])
	}

	if wi := rep.WeightIssues; wi != nil {
		b.WriteString("\n## Weight Validation\n\n")
		fmt.Fprintf(&b, "Declared weights total %.2f across %d dimensions (expected %.2f, difference %+.2f, tolerance %.2f). Score is not certified.\n\n",
			wi.TotalWeight, wi.DimensionCount, wi.ExpectedWeight, wi.Difference, wi.Tolerance)
		for _, v := range wi.Errors {
			fmt.Fprintf(&b, "- [%s] %s: %s (observed %.2f, expected %s)\n", v.Kind, v.Dimension, v.Message, v.Observed, v.Expected)
		}
		for _, w := range wi.Warnings {
			fmt.Fprintf(&b, "- warning: %s\n", w)
		}
		b.WriteString("\n| Tier | Declared weight | Dimensions |\n|:-----|----------------:|:-----------|\n")
		for _, t := range dimension.Tiers {
			if tw, ok := wi.DimensionsByTier[t]; ok {
				fmt.Fprintf(&b, "| %s | %.2f | %d (%s) |\n", t, tw.TotalWeight, tw.DimensionCount, joinOrNone(tw.Dimensions))
			}
		}
		if len(wi.SuggestedRebalancing) > 0 {
			b.WriteString("\nSuggested weights:\n\n")
			for _, name := range sortedKeys(wi.SuggestedRebalancing) {
				fmt.Fprintf(&b, "- %s: %.2f\n", name, wi.SuggestedRebalancing[name])
			}
		}
	}
	return b.String()
}

const textRule = "==================================="

// Text renders the fixed-width plain-text form.
func Text(rep *Report) string {
	var b strings.Builder
	md := rep.Metadata

	b.WriteString("=== AI Pattern Analysis Results ===\n")
	if md.DocumentPath != "" {
		fmt.Fprintf(&b, "File: %s\n", md.DocumentPath)
	}
	fmt.Fprintf(&b, "Analyzed: %s\n", formatTime(md.Timestamp))
	fmt.Fprintf(&b, "Words: %d\n", md.TotalWords)
	fmt.Fprintf(&b, "Execution time: %.3fs\n", md.ExecutionSeconds)
	fmt.Fprintf(&b, "Dimensions: %d of %d loaded (%s)\n", md.DimensionsLoaded, md.DimensionsAvailable, joinOrNone(md.Loaded))
	if md.IsPartial {
		fmt.Fprintf(&b, "Partial analysis, %d of %d dimensions loaded. Not loaded: %s\n",
			md.DimensionsLoaded, md.DimensionsAvailable, joinOrNone(md.NotLoaded))
	}
	for _, name := range sortedKeys(md.Failed) {
		fmt.Fprintf(&b, "Unavailable: %s: %s\n", name, md.Failed[name])
	}
	b.WriteString(textRule + "\n\n")

	o := rep.Overall
	fmt.Fprintf(&b, "Overall Score: %.1f/100 (Grade %s)\n", o.Score, o.Grade)
	fmt.Fprintf(&b, "Assessment: %s\n", o.Assessment)
	fmt.Fprintf(&b, "Detection risk: %.1f/100 (%s)\n", o.DetectionRisk, o.DetectionAssessment)
	fmt.Fprintf(&b, "Estimated effort: %s\n", o.EstimatedEffort)
	fmt.Fprintf(&b, "Certified: %s\n", yesNo(o.Certified))

	b.WriteString("\n--- Dimension Scores ---\n")
	nameWidth := len("Dimension")
	for _, t := range rep.Tiers {
		for _, d := range t.Dimensions {
			if w := runewidth.StringWidth(d.Name); w > nameWidth {
				nameWidth = w
			}
		}
	}
	for _, t := range rep.Tiers {
		if t.NoData {
			fmt.Fprintf(&b, "\n%s Tier (no data)\n", t.Tier)
		} else {
			fmt.Fprintf(&b, "\n%s Tier (Score: %.1f)\n", t.Tier, t.Score)
		}
		for _, d := range t.Dimensions {
			fmt.Fprintf(&b, "  %s %6.1f  %-8s %6.2f  %s\n",
				runewidth.FillRight(d.Name, nameWidth), d.Score, d.Rating, d.Weight, d.Impact)
			for _, rec := range d.Recommendations {
				fmt.Fprintf(&b, "    - %s\n", rec)
			}
		}
		if len(t.Unavailable) > 0 {
			fmt.Fprintf(&b, "  Unavailable: %s\n", strings.Join(t.Unavailable, ", "))
		}
	}

	b.WriteString("\n--- Recommendations ---\n")
	if len(rep.Recommendations) == 0 {
		b.WriteString("No recommendations.\n")
	}
	for i, r := range rep.Recommendations {
		fmt.Fprintf(&b, "%2d. [%s] %s (%s, weight %.2f, priority %.1f): %s\n",
			i+1, r.Impact, r.Dimension, r.Tier, r.Weight, r.Priority, r.Recommendation)
	}

	p := rep.Plan
	b.WriteString("\n--- Improvement Plan ---\n")
	fmt.Fprintf(&b, "Quality: %.1f, target %.1f, gap %.1f\n", rep.Overall.Score, p.QualityTarget, p.QualityGap)
	fmt.Fprintf(&b, "Detection risk: %.1f, target %.1f, gap %.1f\n", rep.Overall.DetectionRisk, p.DetectionTarget, p.DetectionGap)
	fmt.Fprintf(&b, "Projected quality after path: %.1f\n", p.ProjectedQuality)
	b.WriteString("PATH TO TARGET:\n")
	textActions(&b, p.PathToTarget)
	b.WriteString("OTHER IMPROVEMENTS:\n")
	textActions(&b, p.Remaining)

	wd := rep.Weights
	b.WriteString("\n--- Weight Distribution ---\n")
	if wd.IsNormalized {
		fmt.Fprintf(&b, "Weights normalized to 100 (declared total %.2f).\n", wd.TotalBeforeNormalization)
	} else {
		fmt.Fprintf(&b, "Declared total %.2f.\n", wd.TotalBeforeNormalization)
	}
	for _, t := range tierOrder(wd.ByTier) {
		fmt.Fprintf(&b, "  %s %6.2f\n", runewidth.FillRight(string(t), nameWidth), wd.ByTier[t])
	}
	for _, name := range sortedKeys(wd.ByDimension) {
		fmt.Fprintf(&b, "  %s %6.2f\n", runewidth.FillRight(name, nameWidth), wd.ByDimension[name])
	}

	if wi := rep.WeightIssues; wi != nil {
		b.WriteString("\n--- Weight Validation ---\n")
		fmt.Fprintf(&b, "Declared weights total %.2f across %d dimensions (expected %.2f, difference %+.2f, tolerance %.2f). Score is not certified.\n",
			wi.TotalWeight, wi.DimensionCount, wi.ExpectedWeight, wi.Difference, wi.Tolerance)
		for _, v := range wi.Errors {
			fmt.Fprintf(&b, "  [%s] %s: %s (observed %.2f, expected %s)\n", v.Kind, v.Dimension, v.Message, v.Observed, v.Expected)
		}
		for _, w := range wi.Warnings {
			fmt.Fprintf(&b, "  warning: %s\n", w)
		}
		for _, t := range dimension.Tiers {
			if tw, ok := wi.DimensionsByTier[t]; ok {
				fmt.Fprintf(&b, "  %s %6.2f  %d (%s)\n", runewidth.FillRight(string(t), nameWidth), tw.TotalWeight, tw.DimensionCount, joinOrNone(tw.Dimensions))
			}
		}
		for _, name := range sortedKeys(wi.SuggestedRebalancing) {
			fmt.Fprintf(&b, "  suggested %s: %.2f\n", name, wi.SuggestedRebalancing[name])
		}
	}
	b.WriteString(textRule + "\n")
	return b.String()
}

func markdownActions(b *strings.Builder, actions []scoring.ImprovementAction) {
	if len(actions) == 0 {
		b.WriteString("None.\n")
		return
	}
	b.WriteString("| # | Dimension | Gain | Effort | Impact | Action |\n")
	b.WriteString("|--:|:----------|-----:|:------:|:------:|:-------|\n")
	for _, a := range actions {
		fmt.Fprintf(b, "| %d | %s | +%.1f | %s | %s | %s |\n", a.Priority, a.Dimension, a.PotentialGain, a.EffortLevel, a.ImpactLevel, a.Action)
	}
}

func textActions(b *strings.Builder, actions []scoring.ImprovementAction) {
	if len(actions) == 0 {
		b.WriteString("  none\n")
		return
	}
	for _, a := range actions {
		fmt.Fprintf(b, "  %2d. %s +%.1f (%s effort, %s impact): %s\n", a.Priority, a.Dimension, a.PotentialGain, a.EffortLevel, a.ImpactLevel, a.Action)
	}
}

func tierOrder(m map[dimension.Tier]float64) []dimension.Tier {
	out := make([]dimension.Tier, 0, len(m))
	for _, t := range dimension.Tiers {
		if _, ok := m[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
