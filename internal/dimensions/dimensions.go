// Package dimensions holds the built-in heuristic dimensions and the
// profiles that select among them.
package dimensions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/inference"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
)

// info carries the registration metadata shared by every built-in.
type info struct {
	name   string
	weight float64
	tier   dimension.Tier
	desc   string
}

func (i info) Name() string                     { return i.name }
func (i info) Weight() float64                  { return i.weight }
func (i info) Tier() dimension.Tier             { return i.tier }
func (i info) Description() string              { return i.desc }
func (i info) Tiers() map[string]dimension.Band { return dimension.DefaultBands() }

func (i *info) reweight(w float64) { i.weight = w }

type reweighter interface {
	reweight(w float64)
}

// Options configures the built-in set.
type Options struct {
	// Model backs the predictability dimension. Nil leaves it unavailable.
	Model   *inference.Handle
	Timeout time.Duration
	Logger  *slog.Logger
}

// All returns every built-in dimension in registration order. Their
// weights sum to 100.
func All(opts Options) []dimension.Dimension {
	return []dimension.Dimension{
		NewPredictability(opts.Model, opts.Timeout, opts.Logger),
		NewTransitionMarker(),
		NewBurstiness(),
		NewPerplexity(),
		NewFormatting(),
		NewStructure(),
		NewVoice(),
		NewLexical(),
		NewReadability(),
	}
}

// Available lists the names of every built-in dimension.
func Available() []string {
	dims := All(Options{})
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name()
	}
	return names
}

// Reduced profiles declare their own weights, each set summing to 100.
// The full profile uses the built-in weights.
var profiles = map[sampling.Profile]map[string]float64{
	sampling.ProfileFast: {
		"burstiness": 35,
		"perplexity": 30,
		"formatting": 20,
		"structure":  15,
	},
	sampling.ProfileBalanced: {
		"burstiness":        19,
		"perplexity":        15,
		"transition_marker": 13,
		"lexical":           13,
		"formatting":        12,
		"readability":       12,
		"voice":             10,
		"structure":         6,
	},
}

// ProfileWeights returns the declared weight of every dimension a profile
// loads.
func ProfileWeights(p sampling.Profile) (map[string]float64, error) {
	switch p {
	case sampling.ProfileFull:
		out := make(map[string]float64)
		for _, d := range All(Options{}) {
			out[d.Name()] = d.Weight()
		}
		return out, nil
	case sampling.ProfileFast, sampling.ProfileBalanced:
		out := make(map[string]float64, len(profiles[p]))
		for name, w := range profiles[p] {
			out[name] = w
		}
		return out, nil
	}
	return nil, &sampling.ConfigError{Field: "profile", Value: p, Reason: "must be fast, balanced or full"}
}

// ProfileNames returns the dimension names a profile loads, in
// registration order.
func ProfileNames(p sampling.Profile) ([]string, error) {
	weights, err := ProfileWeights(p)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range Available() {
		if _, ok := weights[name]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// ForProfile returns the built-ins selected by p, in registration order,
// carrying the profile's declared weights.
func ForProfile(p sampling.Profile, opts Options) ([]dimension.Dimension, error) {
	weights, err := ProfileWeights(p)
	if err != nil {
		return nil, err
	}
	var out []dimension.Dimension
	for _, d := range All(opts) {
		w, ok := weights[d.Name()]
		if !ok {
			continue
		}
		if r, ok := d.(reweighter); ok {
			r.reweight(w)
		}
		out = append(out, d)
	}
	return out, nil
}

// Register adds dims to reg and stops at the first failure.
func Register(reg *dimension.Registry, dims []dimension.Dimension) error {
	for _, d := range dims {
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("register %s: %w", d.Name(), err)
		}
	}
	return nil
}

// NewRegistry builds a registry holding the built-ins of profile p.
func NewRegistry(p sampling.Profile, opts Options) (*dimension.Registry, error) {
	dims, err := ForProfile(p, opts)
	if err != nil {
		return nil, err
	}
	reg := dimension.NewRegistry()
	if err := Register(reg, dims); err != nil {
		return nil, err
	}
	return reg, nil
}
