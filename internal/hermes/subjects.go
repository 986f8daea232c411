package hermes

const (
	SubjectAnalysisRequest = "lectern.analysis.request"
	SubjectBrokerStats     = "lectern.broker.stats"

	QueueGroup   = "lectern-workers"
	StreamName   = "LECTERN_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// StreamSubjects are captured by the events stream.
var StreamSubjects = []string{"lectern.analysis.>", "lectern.broker.>"}

func SubjectAnalysisStarted(runID string) string   { return "lectern.analysis." + runID + ".started" }
func SubjectAnalysisCompleted(runID string) string { return "lectern.analysis." + runID + ".completed" }
func SubjectAnalysisFailed(runID string) string    { return "lectern.analysis." + runID + ".failed" }

// IsWorkSubject reports whether messages on subject are work items that
// one worker of the queue group should take. Everything else fans out.
func IsWorkSubject(subject string) bool {
	return subject == SubjectAnalysisRequest
}
