package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Lectern/internal/analyzer"
	"github.com/MikeSquared-Agency/Lectern/internal/dimension"
	"github.com/MikeSquared-Agency/Lectern/internal/sampling"
	"github.com/MikeSquared-Agency/Lectern/internal/store"
)

// CatalogHandler serves what the analyzer has loaded and its history.
type CatalogHandler struct {
	analyzer  *analyzer.Analyzer
	available []string
}

func NewCatalogHandler(a *analyzer.Analyzer, available []string) *CatalogHandler {
	return &CatalogHandler{analyzer: a, available: available}
}

type DimensionsResponse struct {
	Profile    sampling.Profile                      `json:"profile"`
	Mode       sampling.Mode                         `json:"mode"`
	Loaded     []dimension.Descriptor                `json:"loaded"`
	NotLoaded  []string                              `json:"not_loaded"`
	ByTier     map[dimension.Tier]dimension.TierInfo `json:"by_tier"`
	TotalCount int                                   `json:"total_available"`
}

func (h *CatalogHandler) Dimensions(w http.ResponseWriter, r *http.Request) {
	reg := h.analyzer.Registry()
	cfg := h.analyzer.Config()

	notLoaded := []string{}
	for _, name := range h.available {
		if !reg.Has(name) {
			notLoaded = append(notLoaded, name)
		}
	}
	total := len(h.available)
	if total < reg.Len() {
		total = reg.Len()
	}
	writeJSON(w, http.StatusOK, DimensionsResponse{
		Profile:    cfg.Profile,
		Mode:       cfg.Mode,
		Loaded:     reg.Descriptors(),
		NotLoaded:  notLoaded,
		ByTier:     reg.TierSummary(),
		TotalCount: total,
	})
}

func (h *CatalogHandler) Weights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analyzer.Weights())
}

type HistoryResponse struct {
	*store.History
	Trend store.Trend `json:"trend"`
}

func (h *CatalogHandler) History(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path query parameter required"})
		return
	}
	if err := store.ValidatePath(path); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	hs := h.analyzer.History()
	if hs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history is not configured"})
		return
	}
	hist, err := hs.Load(r.Context(), path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: hist, Trend: hist.Trend()})
}
