package dimensions

import (
	"context"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

var (
	emDashRe = regexp.MustCompile(`—|\s--\s`)
	boldRe   = regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__`)
	italicRe = regexp.MustCompile(`(?:^|[^*])\*[^*\s][^*\n]*\*(?:[^*]|$)`)

	firstPersonRe = regexp.MustCompile(`(?i)\b(?:i|i'm|i've|i'd|me|my|mine|we|we're|we've|our|ours|us)\b`)
	youRe         = regexp.MustCompile(`(?i)\b(?:you|your|yours|you're|you've)\b`)
	contractionRe = regexp.MustCompile(`(?i)\b\p{L}+['’](?:t|s|re|ve|ll|d|m)\b`)
)

// Formatting measures em-dash and bold density.
type Formatting struct{ info }

func NewFormatting() *Formatting {
	return &Formatting{info{
		name:   "formatting",
		weight: 10,
		tier:   dimension.TierCore,
		desc:   "Em-dash, bold and italic density",
	}}
}

func (d *Formatting) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	total := len(words(text))
	dashes := len(emDashRe.FindAllString(text, -1))
	bold := len(boldRe.FindAllString(text, -1))
	italic := len(italicRe.FindAllString(text, -1))
	return sampling.Map{
		"words":          sampling.Number(total),
		"em_dashes":      sampling.Number(dashes),
		"em_dash_per_1k": sampling.Number(per1k(dashes, total)),
		"bold":           sampling.Number(bold),
		"bold_per_1k":    sampling.Number(per1k(bold, total)),
		"italic":         sampling.Number(italic),
	}, nil
}

func (d *Formatting) CalculateScore(m sampling.Map) (float64, error) {
	dashes, _ := m.Number("em_dash_per_1k")
	bold, _ := m.Number("bold_per_1k")
	return clampScore(100 - dashes*8 - bold*3), nil
}

func (d *Formatting) Recommendations(score float64, m sampling.Map) []string {
	if score >= 80 {
		return nil
	}
	var recs []string
	if v, _ := m.Number("em_dash_per_1k"); v > 2 {
		recs = append(recs, "Replace most em-dashes with commas, colons or full stops")
	}
	if v, _ := m.Number("bold_per_1k"); v > 5 {
		recs = append(recs, "Reserve bold for a few key terms")
	}
	if len(recs) == 0 {
		recs = append(recs, "Reduce decorative formatting")
	}
	return recs
}

// Voice measures first person, direct address and contractions.
type Voice struct{ info }

func NewVoice() *Voice {
	return &Voice{info{
		name:   "voice",
		weight: 8,
		tier:   dimension.TierSupporting,
		desc:   "Authorial voice: first person, direct address, contractions",
	}}
}

func (d *Voice) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	total := len(words(text))
	first := len(firstPersonRe.FindAllString(text, -1))
	you := len(youRe.FindAllString(text, -1))
	contractions := len(contractionRe.FindAllString(text, -1))
	return sampling.Map{
		"words":          sampling.Number(total),
		"first_person":   sampling.Number(first),
		"direct_address": sampling.Number(you),
		"contractions":   sampling.Number(contractions),
		"markers_per_1k": sampling.Number(per1k(first+you+contractions, total)),
	}, nil
}

// CalculateScore reaches 100 at 25 voice markers per 1k words.
func (d *Voice) CalculateScore(m sampling.Map) (float64, error) {
	n, _ := m.Number("markers_per_1k")
	return linear(n, 0, 25), nil
}

func (d *Voice) Recommendations(score float64, m sampling.Map) []string {
	if score >= 70 {
		return nil
	}
	var recs []string
	if v, _ := m.Number("contractions"); v == 0 {
		recs = append(recs, "Use contractions where they read naturally")
	}
	recs = append(recs, "Address the reader directly and share first-hand experience")
	return recs
}

// Lexical measures vocabulary diversity as a type-token ratio over the
// first 1000 words, so the ratio does not fall with document length.
type Lexical struct{ info }

const lexicalWindow = 1000

func NewLexical() *Lexical {
	return &Lexical{info{
		name:   "lexical",
		weight: 10,
		tier:   dimension.TierSupporting,
		desc:   "Vocabulary diversity (type-token ratio)",
	}}
}

func (d *Lexical) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	ws := words(text)
	window := ws
	if len(window) > lexicalWindow {
		window = window[:lexicalWindow]
	}
	unique := make(map[string]struct{}, len(window))
	for _, w := range window {
		unique[strings.ToLower(w)] = struct{}{}
	}
	ttr := 0.0
	if len(window) > 0 {
		ttr = float64(len(unique)) / float64(len(window))
	}
	return sampling.Map{
		"words":        sampling.Number(len(ws)),
		"unique_words": sampling.Number(len(unique)),
		"ttr":          sampling.Number(round2(ttr)),
	}, nil
}

func (d *Lexical) CalculateScore(m sampling.Map) (float64, error) {
	ttr, _ := m.Number("ttr")
	return linear(ttr, 0.3, 0.6), nil
}

func (d *Lexical) Recommendations(score float64, _ sampling.Map) []string {
	if score >= 70 {
		return nil
	}
	return []string{"Vary word choice; avoid repeating the same nouns and verbs"}
}
