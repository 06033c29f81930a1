package log

// Common field names
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldBytes       = "bytes"
	FieldError       = "error"
	FieldFile        = "file"
	FieldFileSize    = "file_size"
	FieldContentType = "content_type"
	FieldState       = "state"
	FieldEndpoint    = "endpoint"
	FieldCount       = "count"
)

// Component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentUpload    = "upload"
	ComponentRender    = "render"
	ComponentAnalysis  = "analysis"
	ComponentStatement = "statement"
	ComponentStorage   = "storage"
	ComponentTemplate  = "template"
	ComponentRateLimit = "rate_limit"
)
