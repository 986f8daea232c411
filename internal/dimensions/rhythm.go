package dimensions

import (
	"context"
	"math"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

// Burstiness measures variation in sentence length. Human prose mixes
// short and long sentences; generated prose tends to be uniform.
type Burstiness struct{ info }

func NewBurstiness() *Burstiness {
	return &Burstiness{info{
		name:   "burstiness",
		weight: 15,
		tier:   dimension.TierCore,
		desc:   "Sentence length variation (coefficient of variation)",
	}}
}

func (d *Burstiness) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	lengths := sentenceLengths(text)
	mean, stdev := meanStdev(lengths)
	cv := 0.0
	if mean > 0 {
		cv = stdev / mean
	}
	var short, long int
	for _, l := range lengths {
		switch {
		case l <= 10:
			short++
		case l >= 25:
			long++
		}
	}
	return sampling.Map{
		"sentence_burstiness": sampling.Map{
			"sentences": sampling.Number(len(lengths)),
			"mean":      sampling.Number(round2(mean)),
			"stdev":     sampling.Number(round2(stdev)),
			"cv":        sampling.Number(round2(cv)),
			"short":     sampling.Number(short),
			"long":      sampling.Number(long),
		},
	}, nil
}

// CalculateScore rises linearly with the coefficient of variation and
// saturates at 0.6.
func (d *Burstiness) CalculateScore(m sampling.Map) (float64, error) {
	v, _ := m.Lookup("sentence_burstiness", "cv")
	cv, _ := v.(sampling.Number)
	return linear(float64(cv), 0.1, 0.6), nil
}

func (d *Burstiness) Recommendations(score float64, _ sampling.Map) []string {
	if score >= 70 {
		return nil
	}
	return []string{"Vary sentence length: follow long sentences with short, punchy ones"}
}

// Readability checks average sentence length against a comfortable band.
type Readability struct{ info }

const (
	idealMinWords = 12.0
	idealMaxWords = 22.0
)

func NewReadability() *Readability {
	return &Readability{info{
		name:   "readability",
		weight: 10,
		tier:   dimension.TierSupporting,
		desc:   "Average words per sentence",
	}}
}

func (d *Readability) Analyze(_ context.Context, text string, _ []string, _ sampling.Config) (sampling.Map, error) {
	lengths := sentenceLengths(text)
	mean, _ := meanStdev(lengths)
	return sampling.Map{
		"sentences":          sampling.Number(len(lengths)),
		"words_per_sentence": sampling.Number(round2(mean)),
	}, nil
}

// CalculateScore loses five points per word outside 12 to 22 words per
// sentence.
func (d *Readability) CalculateScore(m sampling.Map) (float64, error) {
	wps, _ := m.Number("words_per_sentence")
	if wps == 0 {
		return 50, nil
	}
	off := math.Max(idealMinWords-wps, wps-idealMaxWords)
	if off <= 0 {
		return 100, nil
	}
	return clampScore(100 - off*5), nil
}

func (d *Readability) Recommendations(score float64, m sampling.Map) []string {
	if score >= 80 {
		return nil
	}
	wps, _ := m.Number("words_per_sentence")
	if wps > idealMaxWords {
		return []string{"Split long sentences; aim for 12 to 22 words on average"}
	}
	return []string{"Combine choppy sentences; aim for 12 to 22 words on average"}
}
