package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trend directions.
const (
	TrendImproving = "IMPROVING"
	TrendWorsening = "WORSENING"
	TrendDeclining = "DECLINING"
	TrendStable    = "STABLE"
	TrendNone      = "N/A"
)

// trendThreshold is the change in points that counts as movement.
const trendThreshold = 1.0

// DimensionDetail is the per-dimension part of a snapshot.
type DimensionDetail struct {
	Tier      string   `json:"tier"`
	Score     *float64 `json:"score,omitempty"`
	Available bool     `json:"available"`
}

// Snapshot is one recorded analysis of a document.
type Snapshot struct {
	ID                      uuid.UUID                  `json:"id"`
	Timestamp               time.Time                  `json:"timestamp"`
	Quality                 float64                    `json:"quality_score"`
	Detection               float64                    `json:"detection_risk"`
	QualityInterpretation   string                     `json:"quality_interpretation"`
	DetectionInterpretation string                     `json:"detection_interpretation"`
	TotalWords              int                        `json:"total_words"`
	Notes                   string                     `json:"notes,omitempty"`
	Mode                    string                     `json:"mode,omitempty"`
	Certified               bool                       `json:"certified"`
	Dimensions              map[string]DimensionDetail `json:"dimensions,omitempty"`
}

// History is every snapshot recorded for one document, oldest first.
type History struct {
	DocumentPath string     `json:"file_path"`
	Snapshots    []Snapshot `json:"scores"`
}

// Add appends s, filling in an ID and timestamp when missing.
func (h *History) Add(s Snapshot) Snapshot {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	h.Snapshots = append(h.Snapshots, s)
	return s
}

// Latest returns the most recent snapshot.
func (h *History) Latest() (Snapshot, bool) {
	if len(h.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return h.Snapshots[len(h.Snapshots)-1], true
}

// Trend compares the last two snapshots.
type Trend struct {
	Detection       string  `json:"detection"`
	Quality         string  `json:"quality"`
	DetectionChange float64 `json:"detection_change"`
	QualityChange   float64 `json:"quality_change"`
}

func (h *History) Trend() Trend {
	if len(h.Snapshots) < 2 {
		return Trend{Detection: TrendNone, Quality: TrendNone}
	}
	last := h.Snapshots[len(h.Snapshots)-1]
	prev := h.Snapshots[len(h.Snapshots)-2]
	det := last.Detection - prev.Detection
	qual := last.Quality - prev.Quality

	t := Trend{
		Detection:       TrendStable,
		Quality:         TrendStable,
		DetectionChange: math.Round(det*10) / 10,
		QualityChange:   math.Round(qual*10) / 10,
	}
	switch {
	case det < -trendThreshold:
		t.Detection = TrendImproving
	case det > trendThreshold:
		t.Detection = TrendWorsening
	}
	switch {
	case qual > trendThreshold:
		t.Quality = TrendImproving
	case qual < -trendThreshold:
		t.Quality = TrendDeclining
	}
	return t
}

// Store persists score histories. Save rewrites the whole history of a
// document; there is no transactional append, so concurrent writers for
// the same document may overwrite each other.
type Store interface {
	// Load returns the history of documentPath, empty if none exists.
	Load(ctx context.Context, documentPath string) (*History, error)
	Save(ctx context.Context, h *History) error
	Close() error
}

// ErrInvalidPath rejects document paths that may not key a history.
var ErrInvalidPath = errors.New("history: invalid document path")

// ValidatePath rejects empty paths, NUL bytes and any ".." element.
func ValidatePath(documentPath string) error {
	if documentPath == "" || strings.ContainsRune(documentPath, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, documentPath)
	}
	for _, part := range strings.FieldsFunc(documentPath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("%w: %q contains ..", ErrInvalidPath, documentPath)
		}
	}
	return nil
}

// Record loads the history of documentPath, appends snap and saves it.
func Record(ctx context.Context, s Store, documentPath string, snap Snapshot) (*History, error) {
	h, err := s.Load(ctx, documentPath)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	h.Add(snap)
	if err := s.Save(ctx, h); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	return h, nil
}
