package hermes

import "time"

// AnalysisRequestEvent asks the broker to analyze a document. Either Text
// or Path must be set; Text wins when both are.
type AnalysisRequestEvent struct {
	RequestID string `json:"request_id,omitempty"`
	Path      string `json:"path,omitempty"`
	Text      string `json:"text,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Record    bool   `json:"record_history,omitempty"`
	Source    string `json:"source,omitempty"`
}

type AnalysisStartedEvent struct {
	RunID        string   `json:"run_id"`
	DocumentPath string   `json:"document_path,omitempty"`
	Dimensions   []string `json:"dimensions"`
}

type AnalysisCompletedEvent struct {
	RunID           string   `json:"run_id"`
	DocumentPath    string   `json:"document_path,omitempty"`
	QualityScore    float64  `json:"quality_score"`
	DetectionRisk   float64  `json:"detection_risk"`
	Grade           string   `json:"grade"`
	Certified       bool     `json:"certified"`
	EstimatedEffort string   `json:"estimated_effort"`
	Unavailable     []string `json:"unavailable,omitempty"`
	DurationMs      int64    `json:"duration_ms"`
}

type AnalysisFailedEvent struct {
	RunID        string `json:"run_id"`
	DocumentPath string `json:"document_path,omitempty"`
	Error        string `json:"error"`
}

// MessageID keys JetStream de-duplication, so a redelivered or retried
// publish of the same run event is stored once.
func (e AnalysisRequestEvent) MessageID() string {
	if e.RequestID == "" {
		return ""
	}
	return e.RequestID + ".request"
}

func (e AnalysisStartedEvent) MessageID() string   { return e.RunID + ".started" }
func (e AnalysisCompletedEvent) MessageID() string { return e.RunID + ".completed" }
func (e AnalysisFailedEvent) MessageID() string    { return e.RunID + ".failed" }

type StatsEvent struct {
	Processed   int       `json:"processed"`
	Failed      int       `json:"failed"`
	InFlight    int       `json:"in_flight"`
	Uncertified int       `json:"uncertified"`
	AvgMs       float64   `json:"avg_analysis_ms"`
	Timestamp   time.Time `json:"timestamp"`
}
