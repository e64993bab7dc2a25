package client

import "context"

// IrradiationClient defines the irradiation operations we perform against the backend.
// Use NewIrradiationClient to obtain an implementation.
type IrradiationClient interface {
	ValidateDevice(ctx context.Context, deviceID, location string) (bool, error)
	ValidateLotNumber(ctx context.Context, lotNumber string) (bool, error)
	ValidateUnit(ctx context.Context, unitNumber, location string) ([]Inventory, error)
	SubmitBatch(ctx context.Context, req SubmitBatchRequest) (*RuleResponse, error)
	ActiveBatch(ctx context.Context, deviceID, location string) (*ActiveBatch, error)
	CompleteBatch(ctx context.Context, req CompleteBatchRequest) (*RuleResponse, error)
}

// InventoryClient covers unit-level checks shared by every workflow.
type InventoryClient interface {
	VerifyCheckDigit(ctx context.Context, unitNumber, checkDigit string) (bool, error)
	Discard(ctx context.Context, req DiscardRequest) (*DiscardResult, error)
}

// ShipmentClient defines the second-verification operations on a shipment.
type ShipmentClient interface {
	VerificationDetails(ctx context.Context, shipmentID int64) (*VerificationDetails, error)
	NotificationDetails(ctx context.Context, shipmentID int64) (*NotificationDetails, error)
	VerifyItem(ctx context.Context, req ShipmentItemRequest) (*RuleResponse, error)
	RemoveItem(ctx context.Context, req ShipmentItemRequest) (*RuleResponse, error)
	CompleteVerification(ctx context.Context, req ShipmentRequest) (*RuleResponse, error)
	CancelVerification(ctx context.Context, req ShipmentRequest) (*RuleResponse, error)
}

// LinkFollower invokes the follow-up a rule response links to, such as a confirmation.
type LinkFollower interface {
	Follow(ctx context.Context, link string) (*RuleResponse, error)
}
