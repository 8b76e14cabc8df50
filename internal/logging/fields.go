package logging

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the structured logging key for pipeline run identifiers.
	FieldRunID = "run_id"
	// FieldStage is the structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldRecord identifies a single detail image or dataset entry.
	FieldRecord = "record"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the summary reason of a failure.
	FieldErrorKind = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRequestID carries the remote prediction or request identifier.
	FieldRequestID = "request_id"
	// FieldDecisionType flags log lines that record a policy decision.
	FieldDecisionType = "decision_type"
	// FieldProgressPercent carries progress through a long stage.
	FieldProgressPercent = "progress_percent"
)
