package sampling

import (
	"fmt"
	"strings"
)

// Mode controls how much of a document each dimension inspects.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeAdaptive Mode = "adaptive"
	ModeSampling Mode = "sampling"
	ModeFull     Mode = "full"
)

// Strategy controls where sample windows are placed.
type Strategy string

const (
	StrategyEven     Strategy = "even"
	StrategyWeighted Strategy = "weighted"
	StrategyAdaptive Strategy = "adaptive"
)

// Profile selects which dimensions are loaded for a run.
type Profile string

const (
	ProfileFast     Profile = "fast"
	ProfileBalanced Profile = "balanced"
	ProfileFull     Profile = "full"
)

const (
	DefaultSamples     = 5
	DefaultSampleChars = 2000

	MinSamples     = 1
	MaxSamples     = 20
	MinSampleChars = 500
	MaxSampleChars = 10000

	// FastCharLimit is the hard per-dimension cap in fast mode.
	FastCharLimit = 2000

	// Adaptive mode analyzes documents below AdaptiveSmallThreshold in full,
	// documents below AdaptiveLargeThreshold with AdaptiveSmallSamples windows
	// and anything larger with AdaptiveLargeSamples windows.
	AdaptiveSmallThreshold = 5000
	AdaptiveLargeThreshold = 50000
	AdaptiveSmallSamples   = 3
	AdaptiveLargeSamples   = 5
)

// ConfigError reports an out-of-range or unknown configuration value.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Config is the per-run analysis configuration. Build it with NewConfig
// and treat it as read-only afterwards.
type Config struct {
	Mode        Mode     `json:"mode" yaml:"mode"`
	Samples     int      `json:"samples" yaml:"samples"`
	SampleChars int      `json:"sample_chars" yaml:"sample_chars"`
	Strategy    Strategy `json:"strategy" yaml:"strategy"`
	Profile     Profile  `json:"profile" yaml:"profile"`

	overrides map[string]int
}

// Option customizes a Config.
type Option func(*Config)

func WithMode(m Mode) Option         { return func(c *Config) { c.Mode = m } }
func WithSamples(n int) Option       { return func(c *Config) { c.Samples = n } }
func WithSampleChars(n int) Option   { return func(c *Config) { c.SampleChars = n } }
func WithStrategy(s Strategy) Option { return func(c *Config) { c.Strategy = s } }
func WithProfile(p Profile) Option   { return func(c *Config) { c.Profile = p } }

// WithOverride caps the characters a single dimension analyzes,
// regardless of mode.
func WithOverride(dimension string, limit int) Option {
	return func(c *Config) {
		if c.overrides == nil {
			c.overrides = make(map[string]int)
		}
		c.overrides[strings.ToLower(dimension)] = limit
	}
}

// DefaultConfig returns adaptive mode with five even 2,000-char samples.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeAdaptive,
		Samples:     DefaultSamples,
		SampleChars: DefaultSampleChars,
		Strategy:    StrategyEven,
		Profile:     ProfileBalanced,
	}
}

// NewConfig applies opts over DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and out-of-range bounds.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeFast, ModeAdaptive, ModeSampling, ModeFull:
	default:
		return &ConfigError{Field: "mode", Value: c.Mode, Reason: "must be one of fast, adaptive, sampling, full"}
	}
	if c.Samples < MinSamples || c.Samples > MaxSamples {
		return &ConfigError{Field: "samples", Value: c.Samples, Reason: fmt.Sprintf("must be between %d and %d", MinSamples, MaxSamples)}
	}
	if c.SampleChars < MinSampleChars || c.SampleChars > MaxSampleChars {
		return &ConfigError{Field: "sample_chars", Value: c.SampleChars, Reason: fmt.Sprintf("must be between %d and %d", MinSampleChars, MaxSampleChars)}
	}
	switch c.Strategy {
	case StrategyEven, StrategyWeighted, StrategyAdaptive:
	default:
		return &ConfigError{Field: "strategy", Value: c.Strategy, Reason: "must be one of even, weighted, adaptive"}
	}
	switch c.Profile {
	case ProfileFast, ProfileBalanced, ProfileFull:
	default:
		return &ConfigError{Field: "profile", Value: c.Profile, Reason: "must be one of fast, balanced, full"}
	}
	for name, limit := range c.overrides {
		if limit <= 0 {
			return &ConfigError{Field: "override." + name, Value: limit, Reason: "must be positive"}
		}
	}
	return nil
}

// Override returns the per-dimension character limit, if one is set.
func (c Config) Override(dimension string) (int, bool) {
	limit, ok := c.overrides[strings.ToLower(dimension)]
	return limit, ok
}

// Overrides returns a copy of the per-dimension limits.
func (c Config) Overrides() map[string]int {
	out := make(map[string]int, len(c.overrides))
	for k, v := range c.overrides {
		out[k] = v
	}
	return out
}
