package dimension

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

// Tier groups dimensions by detection accuracy and role.
type Tier string

const (
	TierAdvanced   Tier = "ADVANCED"
	TierCore       Tier = "CORE"
	TierSupporting Tier = "SUPPORTING"
	TierStructural Tier = "STRUCTURAL"

	// TierUnknown is assigned to results from unregistered dimensions.
	TierUnknown Tier = "UNKNOWN"
)

// Tiers lists the valid tiers in report order.
var Tiers = []Tier{TierAdvanced, TierCore, TierSupporting, TierStructural}

// Valid reports whether t is one of the four registrable tiers.
func (t Tier) Valid() bool {
	for _, v := range Tiers {
		if t == v {
			return true
		}
	}
	return false
}

// ParseTier converts a case-insensitive tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &InvalidTierError{Tier: t}
	}
	return t, nil
}

// Band is an inclusive score range for a named rating.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether score falls inside the band.
func (b Band) Contains(score float64) bool {
	return score >= b.Min && score <= b.Max
}

// DefaultBands returns the low/medium/high rating bands used when a
// dimension does not define its own.
func DefaultBands() map[string]Band {
	return map[string]Band{
		"low":    {Min: 0, Max: 40},
		"medium": {Min: 40, Max: 70},
		"high":   {Min: 70, Max: 100},
	}
}

// Rating returns the label of the highest band containing score.
func Rating(bands map[string]Band, score float64) string {
	best := ""
	bestMin := -1.0
	for label, b := range bands {
		if b.Contains(score) && b.Min > bestMin {
			best, bestMin = label, b.Min
		}
	}
	if best == "" {
		return "unrated"
	}
	return best
}

// Dimension is one independent text-analysis signal.
type Dimension interface {
	Name() string
	// Weight is the declared share of the overall score, 0 to 100.
	Weight() float64
	Tier() Tier
	Description() string

	// Analyze returns raw metrics for text. The shape of the map varies by
	// dimension.
	Analyze(ctx context.Context, text string, lines []string, cfg sampling.Config) (sampling.Map, error)
	// CalculateScore maps metrics onto 0..100.
	CalculateScore(metrics sampling.Map) (float64, error)
	Recommendations(score float64, metrics sampling.Map) []string
	Tiers() map[string]Band
}

// PrefixAnalyzer is implemented by dimensions that skip sampling and
// always analyze the first FixedPrefix characters.
type PrefixAnalyzer interface {
	FixedPrefix() int
}

// Descriptor is the registration metadata of a dimension.
type Descriptor struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Tier        Tier    `json:"tier"`
	Description string  `json:"description"`
}

// Describe extracts a Descriptor from d.
func Describe(d Dimension) Descriptor {
	return Descriptor{
		Name:        d.Name(),
		Weight:      d.Weight(),
		Tier:        d.Tier(),
		Description: d.Description(),
	}
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s, %.1f%%)", d.Name, d.Tier, d.Weight)
}
