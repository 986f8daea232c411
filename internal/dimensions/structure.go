package dimensions

import (
	"context"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

var (
	bulletRe  = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+\S`)
)

// Structure measures list density and heading depth. Generated drafts
// lean heavily on bullets and deep heading trees.
type Structure struct{ info }

func NewStructure() *Structure {
	return &Structure{info{
		name:   "structure",
		weight: 5,
		tier:   dimension.TierStructural,
		desc:   "List density and heading hierarchy",
	}}
}

func (d *Structure) Analyze(_ context.Context, text string, lines []string, _ sampling.Config) (sampling.Map, error) {
	if len(lines) == 0 {
		lines = strings.Split(text, "\n")
	}
	var content, bullets, headings, depth int
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		content++
		if m := headingRe.FindStringSubmatch(l); m != nil {
			headings++
			if len(m[1]) > depth {
				depth = len(m[1])
			}
			continue
		}
		if bulletRe.MatchString(l) {
			bullets++
		}
	}
	ratio := 0.0
	if content > 0 {
		ratio = float64(bullets) / float64(content)
	}
	return sampling.Map{
		"lines":         sampling.Number(content),
		"bullet_lines":  sampling.Number(bullets),
		"bullet_ratio":  sampling.Number(round2(ratio)),
		"headings":      sampling.Number(headings),
		"heading_depth": sampling.Number(depth),
	}, nil
}

// CalculateScore penalizes bullet ratios above 0.2 and headings nested
// deeper than three levels.
func (d *Structure) CalculateScore(m sampling.Map) (float64, error) {
	ratio, _ := m.Number("bullet_ratio")
	depth, _ := m.Number("heading_depth")
	score := 100.0
	if ratio > 0.2 {
		score -= (ratio - 0.2) * 200
	}
	if depth > 3 {
		score -= (depth - 3) * 15
	}
	return clampScore(score), nil
}

func (d *Structure) Recommendations(score float64, m sampling.Map) []string {
	if score >= 80 {
		return nil
	}
	var recs []string
	if v, _ := m.Number("bullet_ratio"); v > 0.2 {
		recs = append(recs, "Turn some bullet lists back into prose paragraphs")
	}
	if v, _ := m.Number("heading_depth"); v > 3 {
		recs = append(recs, "Flatten the heading hierarchy to three levels")
	}
	return recs
}
