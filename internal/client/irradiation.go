package client

import (
	"context"
	"fmt"

	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// LotTypeIrradiation is the lot type of irradiation indicators.
const LotTypeIrradiation = "IRRADIATION_INDICATOR"

const ruleResponseSelection = `ruleCode notifications { statusCode notificationType code name message details } _links results`

const (
	validateDeviceQuery = `query validateDevice($deviceId: String!, $location: String!) {
  validateDevice(bloodCenterId: $deviceId, location: $location)
}`
	validateLotNumberQuery = `query validateLotNumber($lotNumber: String!, $type: String!) {
  validateLotNumber(lotNumber: $lotNumber, type: $type)
}`
	validateUnitQuery = `query validateUnit($unitNumber: String!, $location: String!) {
  validateUnit(unitNumber: $unitNumber, location: $location) {
    unitNumber productCode productDescription productFamily location status statusReason
    unsuitableReason expired expirationDate aboRh quarantines { reason stopsManufacturing }
  }
}`
	submitBatchMutation = `mutation submitBatch($input: SubmitBatchRequest!) {
  submitBatch(input: $input) { ` + ruleResponseSelection + ` }
}`
	activeBatchQuery = `query activeBatch($deviceId: String!, $location: String!) {
  activeBatch(deviceId: $deviceId, location: $location) {
    batchId deviceId startTime
    batchItems { unitNumber productCode productDescription productFamily lotNumber status }
  }
}`
	completeBatchMutation = `mutation completeBatch($input: CompleteBatchRequest!) {
  completeBatch(input: $input) { ` + ruleResponseSelection + ` }
}`
)

// irradiationClient talks to the irradiation GraphQL API.
// It is intentionally unexported so callers use the IrradiationClient interface.
type irradiationClient struct {
	*HTTPClient
	graphqlPath string
}

// NewIrradiationClient creates an IrradiationClient sharing http.
func NewIrradiationClient(http *HTTPClient, graphqlPath string) IrradiationClient {
	return &irradiationClient{HTTPClient: http, graphqlPath: graphqlPath}
}

// ValidateDevice reports whether deviceID is an irradiator usable at location.
func (c *irradiationClient) ValidateDevice(ctx context.Context, deviceID, location string) (bool, error) {
	var valid bool
	err := c.GraphQL(ctx, c.graphqlPath, "validateDevice", "validateDevice", validateDeviceQuery,
		map[string]any{"deviceId": deviceID, "location": location}, &valid)
	if err != nil {
		return false, fmt.Errorf("validate device '%s' at '%s': %w", deviceID, location, err)
	}
	return valid, nil
}

// ValidateLotNumber reports whether lotNumber is a known irradiation indicator lot.
func (c *irradiationClient) ValidateLotNumber(ctx context.Context, lotNumber string) (bool, error) {
	var valid bool
	err := c.GraphQL(ctx, c.graphqlPath, "validateLotNumber", "validateLotNumber", validateLotNumberQuery,
		map[string]any{"lotNumber": lotNumber, "type": LotTypeIrradiation}, &valid)
	if err != nil {
		return false, fmt.Errorf("validate lot number '%s': %w", lotNumber, err)
	}
	return valid, nil
}

// ValidateUnit returns the products of unitNumber stored at location.
func (c *irradiationClient) ValidateUnit(ctx context.Context, unitNumber, location string) ([]Inventory, error) {
	var inventories []Inventory
	err := c.GraphQL(ctx, c.graphqlPath, "validateUnit", "validateUnit", validateUnitQuery,
		map[string]any{"unitNumber": unitNumber, "location": location}, &inventories)
	if err != nil {
		return nil, fmt.Errorf("validate unit '%s' at '%s': %w", unitNumber, location, err)
	}
	return inventories, nil
}

// SubmitBatch starts an irradiation batch.
func (c *irradiationClient) SubmitBatch(ctx context.Context, req SubmitBatchRequest) (*RuleResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("submit batch for device '%s': %w", req.DeviceID, err)
	}
	utils.WithComponent("irradiation_client").Debug("SubmitBatch called",
		zap.String(utils.FieldDeviceID, req.DeviceID),
		zap.Int("item_count", len(req.BatchItems)))

	var response RuleResponse
	err := c.GraphQL(ctx, c.graphqlPath, "submitBatch", "submitBatch", submitBatchMutation,
		map[string]any{"input": req}, &response)
	if err != nil {
		return nil, fmt.Errorf("submit batch for device '%s': %w", req.DeviceID, err)
	}
	return &response, nil
}

// ActiveBatch returns the open batch of deviceID, or nil when there is none.
func (c *irradiationClient) ActiveBatch(ctx context.Context, deviceID, location string) (*ActiveBatch, error) {
	var batch *ActiveBatch
	err := c.GraphQL(ctx, c.graphqlPath, "activeBatch", "activeBatch", activeBatchQuery,
		map[string]any{"deviceId": deviceID, "location": location}, &batch)
	if err != nil {
		return nil, fmt.Errorf("get active batch of device '%s': %w", deviceID, err)
	}
	return batch, nil
}

// CompleteBatch closes an irradiation batch with its inspection results.
func (c *irradiationClient) CompleteBatch(ctx context.Context, req CompleteBatchRequest) (*RuleResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("complete batch %d: %w", req.BatchID, err)
	}
	var response RuleResponse
	err := c.GraphQL(ctx, c.graphqlPath, "completeBatch", "completeBatch", completeBatchMutation,
		map[string]any{"input": req}, &response)
	if err != nil {
		return nil, fmt.Errorf("complete batch %d: %w", req.BatchID, err)
	}
	return &response, nil
}
