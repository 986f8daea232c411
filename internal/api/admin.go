package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Lectern/internal/broker"
	"github.com/MikeSquared-Agency/Lectern/internal/inference"
)

type AdminHandler struct {
	broker *broker.Broker
	model  *inference.Handle
}

func NewAdminHandler(b *broker.Broker, model *inference.Handle) *AdminHandler {
	return &AdminHandler{broker: b, model: model}
}

type StatsResponse struct {
	Broker      *BrokerStats `json:"broker,omitempty"`
	ModelLoaded bool         `json:"model_loaded"`
	ModelLoads  int          `json:"model_loads"`
}

type BrokerStats struct {
	Processed   int     `json:"processed"`
	Failed      int     `json:"failed"`
	InFlight    int     `json:"in_flight"`
	Uncertified int     `json:"uncertified"`
	AvgMs       float64 `json:"avg_analysis_ms"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse
	if h.broker != nil {
		s := h.broker.Stats()
		resp.Broker = &BrokerStats{
			Processed:   s.Processed,
			Failed:      s.Failed,
			InFlight:    s.InFlight,
			Uncertified: s.Uncertified,
			AvgMs:       s.AvgMs(),
		}
	}
	if h.model != nil {
		resp.ModelLoaded = h.model.Loaded()
		resp.ModelLoads = h.model.Loads()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetModel drops the cached model so the next predictability run
// reloads it.
func (h *AdminHandler) ResetModel(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no model backend configured"})
		return
	}
	h.model.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
