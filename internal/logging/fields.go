package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. token_refresh_failed).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldMediaID is the standardized key for remote media identifiers.
	FieldMediaID = "media_id"
	// FieldEndpoint is the standardized key for API endpoint paths (e.g. me/media).
	FieldEndpoint = "endpoint"
)
