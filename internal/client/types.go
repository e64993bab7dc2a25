package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anmicius0/unit-batch-station/internal/notify"
)

// Rule codes returned by backend rule endpoints.
const (
	RuleCodeOK         = "200 OK"
	RuleCodeBadRequest = "400 BAD_REQUEST"
)

// Link names used in a rule response's `_links`.
const (
	LinkNext    = "next"
	LinkConfirm = "confirm"
)

// RuleResponse is the envelope returned by backend rule endpoints.
type RuleResponse struct {
	RuleCode      string                `json:"ruleCode"`
	Notifications []notify.Notification `json:"notifications"`
	Links         map[string]string     `json:"_links,omitempty"`
	Results       json.RawMessage       `json:"results,omitempty"`
}

// OK reports whether the backend accepted the request.
func (r *RuleResponse) OK() bool {
	if r.RuleCode == "" {
		return !notify.Has(r.Notifications, notify.TypeError, notify.TypeSystem)
	}
	return strings.HasPrefix(r.RuleCode, "2")
}

// Link returns the named link or "".
func (r *RuleResponse) Link(name string) string {
	if r == nil || r.Links == nil {
		return ""
	}
	return r.Links[name]
}

// Message returns the first notification message of type t.
func (r *RuleResponse) Message(t string) string {
	if n, ok := notify.First(r.Notifications, t); ok {
		return n.Message
	}
	return ""
}

// DecodeResults unmarshals the first element of `results.results` into v.
// It reports false when the list is absent or empty.
func (r *RuleResponse) DecodeResults(v any) (bool, error) {
	if len(r.Results) == 0 || string(r.Results) == "null" {
		return false, nil
	}
	var wrapper struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(r.Results, &wrapper); err != nil {
		return false, fmt.Errorf("decode rule results: %w", err)
	}
	if len(wrapper.Results) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(wrapper.Results[0], v); err != nil {
		return false, fmt.Errorf("decode rule result: %w", err)
	}
	return true, nil
}

// Quarantine is an active quarantine on a product.
type Quarantine struct {
	Reason             string `json:"reason"`
	StopsManufacturing bool   `json:"stopsManufacturing"`
}

// Inventory is one product of a unit as returned by unit validation.
type Inventory struct {
	UnitNumber         string       `json:"unitNumber"`
	ProductCode        string       `json:"productCode"`
	ProductDescription string       `json:"productDescription"`
	ProductFamily      string       `json:"productFamily"`
	Location           string       `json:"location"`
	Status             string       `json:"status"`
	StatusReason       string       `json:"statusReason,omitempty"`
	UnsuitableReason   string       `json:"unsuitableReason,omitempty"`
	Expired            bool         `json:"expired"`
	ExpirationDate     string       `json:"expirationDate,omitempty"`
	AboRh              string       `json:"aboRh,omitempty"`
	Quarantines        []Quarantine `json:"quarantines,omitempty"`
}

// SubmitBatchItem is one product in a start-irradiation request.
type SubmitBatchItem struct {
	UnitNumber  string `json:"unitNumber" validate:"required"`
	ProductCode string `json:"productCode" validate:"required"`
	LotNumber   string `json:"lotNumber" validate:"required"`
}

// SubmitBatchRequest starts an irradiation batch.
type SubmitBatchRequest struct {
	DeviceID   string            `json:"deviceId" validate:"required"`
	StartTime  string            `json:"startTime" validate:"required"`
	BatchItems []SubmitBatchItem `json:"batchItems" validate:"required,min=1,dive"`
}

// BatchItem is one product of an active irradiation batch.
type BatchItem struct {
	UnitNumber         string `json:"unitNumber"`
	ProductCode        string `json:"productCode"`
	ProductDescription string `json:"productDescription"`
	ProductFamily      string `json:"productFamily"`
	LotNumber          string `json:"lotNumber"`
	Status             string `json:"status"`
}

// ActiveBatch is the open batch of an irradiator.
type ActiveBatch struct {
	BatchID    int64       `json:"batchId"`
	DeviceID   string      `json:"deviceId"`
	StartTime  string      `json:"startTime"`
	BatchItems []BatchItem `json:"batchItems"`
}

// CompleteBatchItem records the inspection of one product.
type CompleteBatchItem struct {
	UnitNumber   string `json:"unitNumber" validate:"required"`
	ProductCode  string `json:"productCode" validate:"required"`
	IsIrradiated bool   `json:"isIrradiated"`
}

// CompleteBatchRequest closes an irradiation batch.
type CompleteBatchRequest struct {
	BatchID    int64               `json:"batchId" validate:"required"`
	EndTime    string              `json:"endTime" validate:"required"`
	BatchItems []CompleteBatchItem `json:"batchItems" validate:"required,min=1,dive"`
}

// ShipmentItem is a packed, verified or ineligible product of a shipment.
type ShipmentItem struct {
	UnitNumber         string   `json:"unitNumber"`
	ProductCode        string   `json:"productCode"`
	ProductDescription string   `json:"productDescription,omitempty"`
	ProductFamily      string   `json:"productFamily,omitempty"`
	Status             string   `json:"status,omitempty"`
	IneligibleStatus   string   `json:"ineligibleStatus,omitempty"`
	IneligibleReason   string   `json:"ineligibleReason,omitempty"`
	IneligibleAction   string   `json:"ineligibleAction,omitempty"`
	IneligibleMessage  string   `json:"ineligibleMessage,omitempty"`
	Details            []string `json:"details,omitempty"`
}

// IneligibleActionDiscard asks the station to discard a removed product.
const IneligibleActionDiscard = "TRIGGER_DISCARD"

// VerificationDetails is the second-verification state of a shipment.
type VerificationDetails struct {
	ShipmentID    int64          `json:"shipmentId"`
	OrderNumber   string         `json:"orderNumber,omitempty"`
	PackedItems   []ShipmentItem `json:"packedItems"`
	VerifiedItems []ShipmentItem `json:"verifiedItems"`
}

// NotificationDetails lists the products that must leave a shipment.
type NotificationDetails struct {
	ShipmentID       int64          `json:"shipmentId"`
	ToBeRemovedItems []ShipmentItem `json:"toBeRemovedItems"`
	RemovedItems     []ShipmentItem `json:"removedItems"`
}

// RemoveItemResult is the payload of a successful removal.
type RemoveItemResult struct {
	RemovedItem      *ShipmentItem  `json:"removedItem"`
	ToBeRemovedItems []ShipmentItem `json:"toBeRemovedItems"`
	RemovedItems     []ShipmentItem `json:"removedItems"`
}

// ShipmentItemRequest identifies a product within a shipment verification.
type ShipmentItemRequest struct {
	ShipmentID  int64  `json:"shipmentId" validate:"required"`
	UnitNumber  string `json:"unitNumber" validate:"required"`
	ProductCode string `json:"productCode" validate:"required"`
	EmployeeID  string `json:"employeeId" validate:"required"`
}

// ShipmentRequest identifies a shipment verification.
type ShipmentRequest struct {
	ShipmentID int64  `json:"shipmentId" validate:"required"`
	EmployeeID string `json:"employeeId" validate:"required"`
}

// Discard triggers.
const (
	TriggeredByIrradiation = "IRRADIATION"
	TriggeredByShipping    = "SHIPPING"
)

// DiscardRequest discards a product.
type DiscardRequest struct {
	UnitNumber              string `json:"unitNumber" validate:"required"`
	ProductCode             string `json:"productCode" validate:"required"`
	LocationCode            string `json:"locationCode" validate:"required"`
	EmployeeID              string `json:"employeeId" validate:"required"`
	TriggeredBy             string `json:"triggeredBy" validate:"required"`
	ReasonDescriptionKey    string `json:"reasonDescriptionKey" validate:"required"`
	ProductFamily           string `json:"productFamily,omitempty"`
	ProductShortDescription string `json:"productShortDescription,omitempty"`
	Comments                string `json:"comments"`
}

// DiscardResult is the backend's record of a discard.
type DiscardResult struct {
	UnitNumber  string `json:"unitNumber"`
	ProductCode string `json:"productCode"`
	Reason      string `json:"reasonDescriptionKey"`
}

// CheckDigitResult is the answer of the check digit endpoint.
type CheckDigitResult struct {
	IsValid bool `json:"isValid"`
}
