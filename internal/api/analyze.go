package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Lectern/internal/analyzer"
	"github.com/MikeSquared-Agency/Lectern/internal/report"
	"github.com/MikeSquared-Agency/Lectern/internal/store"
)

type AnalyzeHandler struct {
	analyzer *analyzer.Analyzer
}

func NewAnalyzeHandler(a *analyzer.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a}
}

// AnalyzeRequest is the JSON body of POST /analyze. Any other content
// type is read as the document itself, with path and notes taken from
// the query string.
type AnalyzeRequest struct {
	Text          string `json:"text"`
	Path          string `json:"path,omitempty"`
	Notes         string `json:"notes,omitempty"`
	RecordHistory bool   `json:"record_history,omitempty"`
}

type AnalyzeResponse struct {
	RunID     uuid.UUID      `json:"run_id"`
	Certified bool           `json:"certified"`
	Report    *report.Report `json:"report"`
	Trend     *store.Trend   `json:"trend,omitempty"`
}

func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	req, err := decodeAnalyzeRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	if req.Path != "" {
		if err := store.ValidatePath(req.Path); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	res, err := h.analyzer.Analyze(r.Context(), analyzer.Document{Path: req.Path, Text: req.Text}, analyzer.Options{
		RecordHistory: req.RecordHistory,
		Notes:         req.Notes,
	})
	if errors.Is(err, analyzer.ErrEmptyDocument) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if format == report.FormatJSON {
		writeJSON(w, http.StatusOK, AnalyzeResponse{
			RunID:     res.RunID,
			Certified: res.Certified,
			Report:    res.Report,
			Trend:     res.Trend,
		})
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set(RunIDHeader, res.RunID.String())
	w.WriteHeader(http.StatusOK)
	_ = report.Render(w, res.Report, format)
}

func decodeAnalyzeRequest(r *http.Request) (AnalyzeRequest, error) {
	var req AnalyzeRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return req, err
			}
			return req, errors.New("invalid request body")
		}
		return req, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, err
	}
	q := r.URL.Query()
	req.Text = string(body)
	req.Path = q.Get("path")
	req.Notes = q.Get("notes")
	req.RecordHistory = q.Get("record") == "true"
	return req, nil
}
