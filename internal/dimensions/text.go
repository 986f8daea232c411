package dimensions

import (
	"math"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

var (
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)?`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

func words(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// proseLines drops headings, list markers, code fences and blank lines.
func proseLines(lines []string) []string {
	var out []string
	inFence := false
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "```") {
			inFence = !inFence
			continue
		}
		if inFence || t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// sentenceLengths returns the word count of every sentence in the prose
// part of text.
func sentenceLengths(text string) []float64 {
	prose := strings.Join(proseLines(strings.Split(text, "\n")), " ")
	var out []float64
	for _, s := range sentenceRe.FindAllString(prose, -1) {
		if n := len(words(s)); n > 0 {
			out = append(out, float64(n))
		}
	}
	return out
}

func countPatterns(text string, patterns []*regexp.Regexp) (int, []sampling.Value) {
	var n int
	var found []sampling.Value
	seen := make(map[string]bool)
	for _, re := range patterns {
		for _, m := range re.FindAllString(text, -1) {
			n++
			key := strings.ToLower(m)
			if !seen[key] && len(found) < 20 {
				seen[key] = true
				found = append(found, sampling.Text(key))
			}
		}
	}
	return n, found
}

func per1k(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(count) / float64(total) * 1000)
}

func meanStdev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// linear maps v from [lo, hi] onto [0, 100], clamped. lo may exceed hi
// for falling scales.
func linear(v, lo, hi float64) float64 {
	if hi == lo {
		return 100
	}
	return clampScore((v - lo) / (hi - lo) * 100)
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func list(vs []sampling.Value) sampling.List {
	if vs == nil {
		return sampling.List{}
	}
	return sampling.List(vs)
}
