package utils

// Log field keys shared across packages.
const (
	FieldSignal      = "signal"
	FieldHost        = "host"
	FieldPort        = "port"
	FieldPath        = "path"
	FieldJobID       = "job_id"
	FieldSessionID   = "session_id"
	FieldWorkflow    = "workflow"
	FieldPhase       = "phase"
	FieldField       = "field"
	FieldUnitNumber  = "unit_number"
	FieldProductCode = "product_code"
	FieldDeviceID    = "device_id"
	FieldShipmentID  = "shipment_id"
	FieldBatchID     = "batch_id"
	FieldOperation   = "operation"
	FieldToken       = "confirmation_token"
)
