package sampling

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Sample is one analysis window. Offset counts characters (runes) from
// the start of the document.
type Sample struct {
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

// Prepared is the text a dimension should analyze: either a single
// string, or an ordered list of samples when Samples is non-empty.
type Prepared struct {
	Text      string
	Samples   []Sample
	Truncated bool
}

// Sampled reports whether the dimension should analyze each sample and
// merge the results.
func (p Prepared) Sampled() bool {
	return len(p.Samples) > 0
}

// PrepareText decides what part of text the named dimension analyzes.
// A per-dimension override takes precedence over the mode default.
func (c Config) PrepareText(text, dimension string) Prepared {
	if limit, ok := c.Override(dimension); ok {
		return truncate(text, limit)
	}

	switch c.Mode {
	case ModeFast:
		return truncate(text, FastCharLimit)
	case ModeFull:
		return Prepared{Text: text}
	case ModeSampling:
		if runeLen(text) <= c.SampleChars {
			return Prepared{Text: text}
		}
		return Prepared{Samples: c.ExtractSamples(text)}
	case ModeAdaptive:
		if runeLen(text) < AdaptiveSmallThreshold {
			return Prepared{Text: text}
		}
		return Prepared{Samples: c.ExtractSamples(text)}
	default:
		return Prepared{Text: text}
	}
}

// Prefix returns the first limit characters of text. Dimensions that opt
// out of sampling analyze this regardless of mode.
func Prefix(text string, limit int) Prepared {
	return truncate(text, limit)
}

// ExtractSamples places sample windows over text according to the
// configured strategy. Text no longer than one window yields a single
// sample at offset 0.
func (c Config) ExtractSamples(text string) []Sample {
	runes := []rune(text)
	size := c.SampleChars
	if size <= 0 {
		size = DefaultSampleChars
	}
	if len(runes) <= size {
		return []Sample{{Offset: 0, Text: text}}
	}

	n := c.sampleCount(len(runes))
	var offsets []int
	switch c.Strategy {
	case StrategyWeighted:
		offsets = weightedOffsets(len(runes), size, n)
	case StrategyAdaptive:
		offsets = sectionOffsets(runes, size, n)
	default:
		offsets = evenOffsets(len(runes), size, n)
	}

	samples := make([]Sample, 0, len(offsets))
	last := -1
	for _, off := range offsets {
		if off == last {
			continue
		}
		last = off
		end := off + size
		if end > len(runes) {
			end = len(runes)
		}
		samples = append(samples, Sample{Offset: off, Text: string(runes[off:end])})
	}
	return samples
}

func (c Config) sampleCount(length int) int {
	if c.Mode == ModeAdaptive {
		if length < AdaptiveLargeThreshold {
			return AdaptiveSmallSamples
		}
		return AdaptiveLargeSamples
	}
	if c.Samples < 1 {
		return DefaultSamples
	}
	return c.Samples
}

// evenOffsets spreads n windows so the first starts at 0 and the last
// ends at the document end.
func evenOffsets(length, size, n int) []int {
	maxStart := length - size
	if n == 1 {
		return []int{0}
	}
	offsets := make([]int, n)
	for i := 0; i < n; i++ {
		offsets[i] = int(math.Round(float64(i) * float64(maxStart) / float64(n-1)))
	}
	return offsets
}

// weightedOffsets keeps a window at each edge and spreads the rest over
// the 10%..70% band of the document.
func weightedOffsets(length, size, n int) []int {
	maxStart := length - size
	switch n {
	case 1:
		return []int{0}
	case 2:
		return []int{0, maxStart}
	}
	interior := n - 2
	offsets := []int{0}
	for j := 0; j < interior; j++ {
		frac := 0.4
		if interior > 1 {
			frac = 0.1 + 0.6*float64(j)/float64(interior-1)
		}
		off := int(math.Round(frac * float64(length)))
		if off > maxStart {
			off = maxStart
		}
		offsets = append(offsets, off)
	}
	return append(offsets, maxStart)
}

// sectionOffsets anchors a window at each end of the document and fills
// the interior with windows starting at markdown headings. Missing
// windows are topped up from the even layout, picking the spot furthest
// from what is already covered.
func sectionOffsets(runes []rune, size, n int) []int {
	maxStart := len(runes) - size
	switch n {
	case 1:
		return []int{0}
	case 2:
		return []int{0, maxStart}
	}
	interior := n - 2

	var headings []int
	for _, off := range headingOffsets(runes) {
		if off > 0 && off < maxStart {
			headings = append(headings, off)
		}
	}
	picked := headings
	if len(headings) > interior {
		picked = make([]int, interior)
		for i := 0; i < interior; i++ {
			idx := 0
			if interior > 1 {
				idx = int(math.Round(float64(i) * float64(len(headings)-1) / float64(interior-1)))
			}
			picked[i] = headings[idx]
		}
	}

	offsets := append([]int{0, maxStart}, picked...)
	candidates := evenOffsets(len(runes), size, n)
	for len(offsets) < n {
		best, bestDist := -1, 0
		for _, c := range candidates {
			if d := nearest(offsets, c); d > bestDist {
				best, bestDist = c, d
			}
		}
		if best < 0 {
			break
		}
		offsets = append(offsets, best)
	}
	sort.Ints(offsets)
	return offsets
}

func nearest(offsets []int, off int) int {
	dist := math.MaxInt
	for _, o := range offsets {
		d := off - o
		if d < 0 {
			d = -d
		}
		if d < dist {
			dist = d
		}
	}
	return dist
}

func headingOffsets(runes []rune) []int {
	var offsets []int
	lineStart := 0
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '\n' {
			continue
		}
		line := strings.TrimLeft(string(runes[lineStart:i]), " ")
		if strings.HasPrefix(line, "#") {
			offsets = append(offsets, lineStart)
		}
		lineStart = i + 1
	}
	return offsets
}

func truncate(text string, limit int) Prepared {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return Prepared{Text: text}
	}
	return Prepared{Text: string(runes[:limit]), Truncated: true}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
