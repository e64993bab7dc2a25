package server

const (
	HealthEndpoint  = "/health"
	VersionEndpoint = "/version"
	SessionsPath    = "/sessions"
	JobsPath        = "/jobs"
	LabelsPath      = "/labels"
)

const (
	StatusHealthy = "healthy"
	StatusPending = "pending"
)

const (
	MessageImportQueued       = "Import queued for processing"
	MessageInvalidRequestBody = "Invalid request body"
	MessageImportEmpty        = "Import file must contain at least one row"
	MessageInvalidToken       = "Invalid token"
	MessageNoBarcode          = "No readable barcode in image"
	MessageInvalidUnitNumber  = "Unit Number is invalid."
)

const (
	ErrorCodeInvalidRequestBody = "invalid_request_body"
	ErrorCodeValidationFailed   = "validation_failed"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeConflict           = "conflict"
	ErrorCodeUnsupported        = "unsupported"
	ErrorCodeInternal           = "internal_error"
)

const (
	JobNotFoundMessageFmt = "Job %s not found"
)

const (
	// maxUploadBytes caps label images and import files.
	maxUploadBytes = 8 << 20

	formFieldFile  = "file"
	formFieldImage = "image"

	contentTypePNG = "image/png"
	contentTypePDF = "application/pdf"
)
