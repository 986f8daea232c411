package dimensions

import (
	"context"
	"regexp"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

var aiVocabulary = compileAll(
	`\bdelv(?:e|es|ing)\b`, `\brobust(?:ness)?\b`, `\bleverag(?:e|es|ed|ing)\b`,
	`\bharness(?:es|ed|ing)?\b`, `\bfacilitat(?:e|es|ed|ing)\b`, `\bunderscor(?:e|es|ed|ing)\b`,
	`\bpivotal\b`, `\bseamless(?:ly)?\b`, `\bholistic(?:ally)?\b`, `\bcomprehensive(?:ly)?\b`,
	`\boptimiz(?:e|es|ed|ing|ation)\b`, `\bstreamlin(?:e|ed|es|ing)\b`, `\butiliz(?:e|es|ed|ation|ing)\b`,
	`\bmyriad\b`, `\bplethora\b`, `\bparamount\b`, `\bquintessential\b`, `\binnovative\b`,
	`\bcutting-edge\b`, `\brevolutionary\b`, `\bgame-changing\b`, `\btransformative\b`,
	`\bdeep dive\b`, `\bdive deep\b`, `\becosystem\b`, `\blandscape\b`, `\bparadigm\s+shift\b`,
	`\bsynerg(?:y|istic)\b`, `\bcommence(?:s|d)?\b`, `\bendeavou?r(?:s)?\b`, `\btapestry\b`,
)

var formulaicTransitions = compileAll(
	`\bfurthermore,`, `\bmoreover,`, `\badditionally,`, `\bin addition,`, `\bfirst and foremost,`,
	`\bit is important to note that\b`, `\bit is worth mentioning that\b`, `\bwhen it comes to\b`,
	`\bin conclusion,`, `\bto summarize,`, `\bin summary,`, `\bas mentioned earlier,`,
	`\bit should be noted that\b`, `\bwith that said,`, `\bhaving said that,`, `\bin today's\b`,
)

// Perplexity measures AI-favoured vocabulary, the strongest lexical tell.
type Perplexity struct{ info }

func NewPerplexity() *Perplexity {
	return &Perplexity{info{
		name:   "perplexity",
		weight: 12,
		tier:   dimension.TierCore,
		desc:   "AI-characteristic vocabulary per 1k words",
	}}
}

func (d *Perplexity) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	total := len(words(text))
	count, found := countPatterns(text, aiVocabulary)
	return sampling.Map{
		"words": sampling.Number(total),
		"ai_vocabulary": sampling.Map{
			"count":  sampling.Number(count),
			"per_1k": sampling.Number(per1k(count, total)),
			"terms":  list(found),
		},
	}, nil
}

// CalculateScore is 100 at two or fewer AI terms per 1k words, falling
// to 0 at twenty.
func (d *Perplexity) CalculateScore(m sampling.Map) (float64, error) {
	v, _ := m.Lookup("ai_vocabulary", "per_1k")
	n, _ := v.(sampling.Number)
	return linear(float64(n), 20, 2), nil
}

func (d *Perplexity) Recommendations(score float64, m sampling.Map) []string {
	if score >= 80 {
		return nil
	}
	recs := []string{"Replace AI-favoured words (leverage, robust, seamless, delve) with plain alternatives"}
	if v, ok := m.Lookup("ai_vocabulary", "terms"); ok {
		if terms, ok := v.(sampling.List); ok && len(terms) > 0 {
			recs = append(recs, "Most frequent offenders: "+joinText(terms, 5))
		}
	}
	return recs
}

// TransitionMarker counts formulaic discourse transitions.
type TransitionMarker struct{ info }

func NewTransitionMarker() *TransitionMarker {
	return &TransitionMarker{info{
		name:   "transition_marker",
		weight: 10,
		tier:   dimension.TierAdvanced,
		desc:   "Formulaic transitions such as Furthermore and Moreover",
	}}
}

func (d *TransitionMarker) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	total := len(words(text))
	count, found := countPatterns(text, formulaicTransitions)
	return sampling.Map{
		"words":       sampling.Number(total),
		"count":       sampling.Number(count),
		"per_1k":      sampling.Number(per1k(count, total)),
		"transitions": list(found),
	}, nil
}

func (d *TransitionMarker) CalculateScore(m sampling.Map) (float64, error) {
	n, _ := m.Number("per_1k")
	return linear(n, 8, 1), nil
}

func (d *TransitionMarker) Recommendations(score float64, m sampling.Map) []string {
	if score >= 80 {
		return nil
	}
	return []string{"Cut formulaic transitions; let paragraphs connect through their content"}
}

func joinText(vs sampling.List, max int) string {
	out := ""
	for i, v := range vs {
		if i == max {
			break
		}
		t, ok := v.(sampling.Text)
		if !ok {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += string(t)
	}
	return out
}
