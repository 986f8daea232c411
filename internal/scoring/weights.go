package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

const (
	// ExpectedTotalWeight is what the declared weights of the active
	// dimensions must sum to.
	ExpectedTotalWeight = 100.0
	DefaultTolerance    = 0.1
	MaxTolerance        = 10.0

	// RegistryDimension names violations that concern the registry as a whole.
	RegistryDimension = "<registry>"
)

// ViolationKind classifies one weight-integrity problem.
type ViolationKind string

const (
	KindNegativeWeight  ViolationKind = "negative_weight"
	KindExcessiveWeight ViolationKind = "excessive_weight"
	KindZeroWeight      ViolationKind = "zero_weight"
	KindInvalidTotal    ViolationKind = "invalid_total"
	KindNoDimensions    ViolationKind = "no_dimensions"
)

// Violation describes one weight-integrity problem.
type Violation struct {
	Dimension string        `json:"dimension"`
	Kind      ViolationKind `json:"kind"`
	Observed  float64       `json:"observed"`
	Expected  string        `json:"expected"`
	Message   string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Kind, v.Dimension, v.Message)
}

// WeightValidationError is returned by RequireValid when the declared
// weights do not form a valid distribution.
type WeightValidationError struct {
	TotalWeight    float64     `json:"total_weight"`
	ExpectedWeight float64     `json:"expected_weight"`
	Tolerance      float64     `json:"tolerance"`
	Violations     []Violation `json:"errors"`
}

func (e *WeightValidationError) Error() string {
	var b strings.Builder
	b.WriteString("Dimension weight validation failed\n")
	fmt.Fprintf(&b, "Total weight: %.2f%%\n", e.TotalWeight)
	fmt.Fprintf(&b, "Expected: %.2f%%\n", e.ExpectedWeight)
	fmt.Fprintf(&b, "Difference: %+.2f%%\n", e.TotalWeight-e.ExpectedWeight)
	fmt.Fprintf(&b, "Tolerance: %.2f%%\n", e.Tolerance)
	for _, v := range e.Violations {
		b.WriteString("  - ")
		b.WriteString(v.String())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Has reports whether the error carries a violation of kind.
func (e *WeightValidationError) Has(kind ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// TierWeight is the declared-weight subtotal of one tier.
type TierWeight struct {
	TotalWeight    float64  `json:"total_weight"`
	DimensionCount int      `json:"dimension_count"`
	Dimensions     []string `json:"dimensions"`
}

// ValidationReport is the full outcome of a weight check.
type ValidationReport struct {
	IsValid              bool                          `json:"is_valid"`
	TotalWeight          float64                       `json:"total_weight"`
	ExpectedWeight       float64                       `json:"expected_weight"`
	Difference           float64                       `json:"difference"`
	Tolerance            float64                       `json:"tolerance"`
	DimensionCount       int                           `json:"dimension_count"`
	DimensionWeights     map[string]float64            `json:"dimension_weights"`
	DimensionsByTier     map[dimension.Tier]TierWeight `json:"dimensions_by_tier"`
	Errors               []Violation                   `json:"errors"`
	Warnings             []string                      `json:"warnings"`
	SuggestedRebalancing map[string]float64            `json:"suggested_rebalancing,omitempty"`
}

// WeightMediator checks that the registry's declared weights sum to 100
// within a tolerance, and proposes a rebalanced set when they do not.
// It holds no per-check state and is safe for concurrent use once the
// registry is no longer being written.
type WeightMediator struct {
	registry  *dimension.Registry
	tolerance float64
}

// check is the outcome of one pass over the registry.
type check struct {
	total    float64
	errors   []Violation
	warnings []string
}

func (c check) valid() bool { return len(c.errors) == 0 }

// NewWeightMediator returns a mediator over reg. Tolerance must be within
// [0, 10] percentage points.
func NewWeightMediator(reg *dimension.Registry, tolerance float64) (*WeightMediator, error) {
	if math.IsNaN(tolerance) || tolerance < 0 || tolerance > MaxTolerance {
		return nil, &sampling.ConfigError{
			Field:  "tolerance",
			Value:  tolerance,
			Reason: "Tolerance must be between 0 and 10.0",
		}
	}
	return &WeightMediator{registry: reg, tolerance: tolerance}, nil
}

// Tolerance returns the accepted absolute deviation from 100.
func (m *WeightMediator) Tolerance() float64 {
	return m.tolerance
}

func (m *WeightMediator) check() check {
	var c check

	dims := m.registry.All()
	if len(dims) == 0 {
		c.errors = append(c.errors, Violation{
			Dimension: RegistryDimension,
			Kind:      KindNoDimensions,
			Observed:  0,
			Expected:  ">= 1",
			Message:   "no dimensions registered",
		})
		return c
	}

	for _, d := range dims {
		w := d.Weight()
		c.total += w
		switch {
		case w < 0:
			c.errors = append(c.errors, Violation{
				Dimension: d.Name(),
				Kind:      KindNegativeWeight,
				Observed:  w,
				Expected:  ">= 0",
				Message:   fmt.Sprintf("weight %.2f%% is negative", w),
			})
		case w > ExpectedTotalWeight:
			c.errors = append(c.errors, Violation{
				Dimension: d.Name(),
				Kind:      KindExcessiveWeight,
				Observed:  w,
				Expected:  "<= 100",
				Message:   fmt.Sprintf("weight %.2f%% exceeds 100%%", w),
			})
		case w == 0:
			c.errors = append(c.errors, Violation{
				Dimension: d.Name(),
				Kind:      KindZeroWeight,
				Observed:  0,
				Expected:  "> 0",
				Message:   "weight is zero",
			})
			c.warnings = append(c.warnings, fmt.Sprintf("dimension %q has zero weight and will not contribute to the score", d.Name()))
		}
	}

	if math.Abs(c.total-ExpectedTotalWeight) > m.tolerance {
		c.errors = append(c.errors, Violation{
			Dimension: RegistryDimension,
			Kind:      KindInvalidTotal,
			Observed:  c.total,
			Expected:  fmt.Sprintf("%.2f", ExpectedTotalWeight),
			Message:   fmt.Sprintf("total weight is %.2f%%, expected %.2f%% (±%.2f)", c.total, ExpectedTotalWeight, m.tolerance),
		})
	}
	return c
}

// Validate reports whether the weights are currently valid.
func (m *WeightMediator) Validate() bool {
	return m.check().valid()
}

// RequireValid returns a *WeightValidationError when the weights are
// invalid.
func (m *WeightMediator) RequireValid() error {
	c := m.check()
	if c.valid() {
		return nil
	}
	return &WeightValidationError{
		TotalWeight:    c.total,
		ExpectedWeight: ExpectedTotalWeight,
		Tolerance:      m.tolerance,
		Violations:     c.errors,
	}
}

// Errors returns the current violations.
func (m *WeightMediator) Errors() []Violation {
	return m.check().errors
}

// Warnings returns the current warnings.
func (m *WeightMediator) Warnings() []string {
	return m.check().warnings
}

// SuggestRebalancing proposes weights, keyed by dimension name, that sum
// to exactly 100 with no negatives when added in registration order.
// Positive weights keep their proportions. If no weight is positive the
// 100 points are split evenly.
func (m *WeightMediator) SuggestRebalancing() map[string]float64 {
	dims := m.registry.All()
	out := make(map[string]float64, len(dims))
	if len(dims) == 0 {
		return out
	}
	if len(dims) == 1 {
		out[dims[0].Name()] = ExpectedTotalWeight
		return out
	}

	// Distribute in hundredths first so every entry is a non-negative
	// two-decimal value.
	const scale = 100
	target := int64(ExpectedTotalWeight * scale)

	var positive float64
	for _, d := range dims {
		if w := d.Weight(); w > 0 {
			positive += w
		}
	}

	cents := make([]int64, len(dims))
	adjust := len(dims) - 1
	if positive == 0 {
		each := target / int64(len(dims))
		for i := range dims {
			cents[i] = each
		}
	} else {
		// Drift goes to the largest weight so it can never turn negative.
		largest := -1.0
		for i, d := range dims {
			w := d.Weight()
			if w <= 0 {
				continue
			}
			cents[i] = int64(math.Round(w / positive * float64(target)))
			if w > largest {
				largest, adjust = w, i
			}
		}
	}

	var sum int64
	for _, c := range cents {
		sum += c
	}
	cents[adjust] += target - sum

	// The last non-zero entry absorbs float error so the running sum in
	// registration order lands on 100 exactly.
	last := 0
	for i, c := range cents {
		if c > 0 {
			last = i
		}
	}
	var running float64
	for i, d := range dims {
		v := float64(cents[i]) / scale
		if i == last {
			v = ExpectedTotalWeight - running
		}
		out[d.Name()] = v
		if i < last {
			running += v
		}
	}
	return out
}

// Report returns the full validation picture. The rebalancing suggestion
// is only included when the weights are invalid.
func (m *WeightMediator) Report() ValidationReport {
	c := m.check()

	rep := ValidationReport{
		IsValid:          c.valid(),
		TotalWeight:      c.total,
		ExpectedWeight:   ExpectedTotalWeight,
		Difference:       c.total - ExpectedTotalWeight,
		Tolerance:        m.tolerance,
		DimensionCount:   m.registry.Len(),
		DimensionWeights: make(map[string]float64),
		DimensionsByTier: make(map[dimension.Tier]TierWeight),
		Errors:           c.errors,
		Warnings:         c.warnings,
	}

	for _, t := range dimension.Tiers {
		rep.DimensionsByTier[t] = TierWeight{Dimensions: []string{}}
	}
	for _, d := range m.registry.All() {
		rep.DimensionWeights[d.Name()] = d.Weight()
		tw := rep.DimensionsByTier[d.Tier()]
		tw.TotalWeight += d.Weight()
		tw.DimensionCount++
		tw.Dimensions = append(tw.Dimensions, d.Name())
		rep.DimensionsByTier[d.Tier()] = tw
	}

	if !rep.IsValid {
		rep.SuggestedRebalancing = m.SuggestRebalancing()
	}
	return rep
}
