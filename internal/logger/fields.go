package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing Fields (Context level)
// Propagated through the call chain via context.
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the dubbing provider's job ID
	FieldJobID = "job_id"

	// FieldDownloadID is the background download ID
	FieldDownloadID = "download_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldProvider names the external provider being called
	FieldProvider = "provider"

	// FieldStage is the explanation pipeline stage
	FieldStage = "stage"
)

// ============================================
// Metric Fields (Entry level)
// Used for aggregation and alerting.
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldAttempt is the poll attempt counter
	FieldAttempt = "attempt"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
