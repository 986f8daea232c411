package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
	"github.com/MikeSquared-Agency/Lectern/internal/scoring"
)

// History backends.
const (
	HistoryFile     = "file"
	HistoryPostgres = "postgres"
	HistorySQLite   = "sqlite"
)

// DefaultServerHistoryDir roots file histories for the server when
// history.dir is unset.
const DefaultServerHistoryDir = "data/history"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	History   HistoryConfig   `yaml:"history"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Inference InferenceConfig `yaml:"inference"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Broker    BrokerConfig    `yaml:"broker"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	// MaxBodyBytes caps the size of a document posted to the API.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HistoryConfig struct {
	Backend string `yaml:"backend"`
	// Dir holds file histories. Empty keeps each history next to its
	// document for CLI runs; the server falls back to
	// DefaultServerHistoryDir.
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// HermesConfig points at NATS. An empty URL disables events.
type HermesConfig struct {
	URL string `yaml:"url"`
}

// InferenceConfig points at the token-rank model server. An empty URL
// leaves the predictability dimension unavailable.
type InferenceConfig struct {
	URL       string `yaml:"url"`
	Model     string `yaml:"model"`
	Token     string `yaml:"token"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type AnalysisConfig struct {
	Mode        string         `yaml:"mode"`
	Samples     int            `yaml:"samples"`
	SampleChars int            `yaml:"sample_chars"`
	Strategy    string         `yaml:"strategy"`
	Profile     string         `yaml:"profile"`
	Overrides   map[string]int `yaml:"overrides"`
}

type ScoringConfig struct {
	Tolerance       float64 `yaml:"tolerance"`
	QualityTarget   float64 `yaml:"quality_target"`
	DetectionTarget float64 `yaml:"detection_target"`
}

type BrokerConfig struct {
	Workers         int `yaml:"workers"`
	QueueSize       int `yaml:"queue_size"`
	StatsIntervalMs int `yaml:"stats_interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutMs) * time.Millisecond
}

// ServerHistoryDir is the file history root used by the server, which
// never keys history files by a client-supplied directory.
func (c *Config) ServerHistoryDir() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	return DefaultServerHistoryDir
}

func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Broker.StatsIntervalMs) * time.Millisecond
}

func (c *Config) Targets() scoring.Targets {
	return scoring.Targets{Quality: c.Scoring.QualityTarget, Detection: c.Scoring.DetectionTarget}
}

// Sampling builds the validated analysis configuration.
func (c *Config) Sampling() (sampling.Config, error) {
	opts := []sampling.Option{
		sampling.WithMode(sampling.Mode(strings.ToLower(c.Analysis.Mode))),
		sampling.WithSamples(c.Analysis.Samples),
		sampling.WithSampleChars(c.Analysis.SampleChars),
		sampling.WithStrategy(sampling.Strategy(strings.ToLower(c.Analysis.Strategy))),
		sampling.WithProfile(sampling.Profile(strings.ToLower(c.Analysis.Profile))),
	}
	for dim, limit := range c.Analysis.Overrides {
		opts = append(opts, sampling.WithOverride(dim, limit))
	}
	return sampling.NewConfig(opts...)
}

// LogLevel maps logging.level onto slog, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8700,
			MetricsPort:  8701,
			MaxBodyBytes: 10 << 20,
		},
		History: HistoryConfig{
			Backend:    HistoryFile,
			SQLitePath: "data/lectern.db",
		},
		Inference: InferenceConfig{
			Model:     "gpt2",
			TimeoutMs: int(30 * time.Second / time.Millisecond),
		},
		Analysis: AnalysisConfig{
			Mode:        string(sampling.ModeAdaptive),
			Samples:     sampling.DefaultSamples,
			SampleChars: sampling.DefaultSampleChars,
			Strategy:    string(sampling.StrategyEven),
			Profile:     string(sampling.ProfileBalanced),
		},
		Scoring: ScoringConfig{
			Tolerance:       scoring.DefaultTolerance,
			QualityTarget:   scoring.DefaultQualityTarget,
			DetectionTarget: scoring.DefaultDetectionTarget,
		},
		Broker: BrokerConfig{
			Workers:         2,
			QueueSize:       64,
			StatsIntervalMs: 30000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.History.Backend {
	case HistoryFile, HistoryPostgres, HistorySQLite:
	default:
		return &sampling.ConfigError{Field: "history.backend", Value: c.History.Backend, Reason: "must be file, postgres or sqlite"}
	}
	if c.History.Backend == HistoryPostgres && c.Database.URL == "" {
		return &sampling.ConfigError{Field: "database.url", Value: "", Reason: "required by the postgres history backend"}
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return &sampling.ConfigError{Field: "logging.format", Value: c.Logging.Format, Reason: "must be json or text"}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LECTERN_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("LECTERN_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("LECTERN_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("LECTERN_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("LECTERN_HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("LECTERN_HISTORY_DIR"); v != "" {
		cfg.History.Dir = v
	}
	if v := os.Getenv("LECTERN_SQLITE_PATH"); v != "" {
		cfg.History.SQLitePath = v
	}
	if v := os.Getenv("LECTERN_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("LECTERN_INFERENCE_URL"); v != "" {
		cfg.Inference.URL = v
	}
	if v := os.Getenv("LECTERN_INFERENCE_MODEL"); v != "" {
		cfg.Inference.Model = v
	}
	if v := os.Getenv("LECTERN_INFERENCE_TOKEN"); v != "" {
		cfg.Inference.Token = v
	}
	if v := os.Getenv("LECTERN_INFERENCE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Inference.TimeoutMs = n
		}
	}
	if v := os.Getenv("LECTERN_MODE"); v != "" {
		cfg.Analysis.Mode = v
	}
	if v := os.Getenv("LECTERN_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.Samples = n
		}
	}
	if v := os.Getenv("LECTERN_SAMPLE_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.SampleChars = n
		}
	}
	if v := os.Getenv("LECTERN_STRATEGY"); v != "" {
		cfg.Analysis.Strategy = v
	}
	if v := os.Getenv("LECTERN_PROFILE"); v != "" {
		cfg.Analysis.Profile = v
	}
	if v := os.Getenv("LECTERN_WEIGHT_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.Tolerance = f
		}
	}
	if v := os.Getenv("LECTERN_QUALITY_TARGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.QualityTarget = f
		}
	}
	if v := os.Getenv("LECTERN_DETECTION_TARGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.DetectionTarget = f
		}
	}
	if v := os.Getenv("LECTERN_BROKER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Workers = n
		}
	}
	if v := os.Getenv("LECTERN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LECTERN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
}
