package log

// Canonical field names for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"

	// Match fields
	FieldReportID = "report_id"
	FieldPhase    = "phase"
	FieldFeedback = "feedback"
	FieldCommand  = "command"

	// Delivery fields
	FieldLink    = "link"
	FieldAttempt = "attempt"
	FieldPending = "pending"

	// Path / network fields
	FieldPath   = "path"
	FieldAddr   = "addr"
	FieldTopic  = "topic"
	FieldRemote = "remote"
)
