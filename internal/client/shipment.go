package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	verificationDetailsQuery = `query getShipmentVerificationDetailsById($shipmentId: ID!) {
  getShipmentVerificationDetailsById(shipmentId: $shipmentId) {
    shipmentId orderNumber
    packedItems { unitNumber productCode productDescription productFamily status }
    verifiedItems { unitNumber productCode productDescription productFamily status }
  }
}`
	notificationDetailsQuery = `query getNotificationDetailsByShipmentId($shipmentId: ID!) {
  getNotificationDetailsByShipmentId(shipmentId: $shipmentId) {
    shipmentId
    toBeRemovedItems { unitNumber productCode productDescription productFamily ineligibleStatus ineligibleReason ineligibleAction ineligibleMessage details }
    removedItems { unitNumber productCode productDescription productFamily }
  }
}`
	verifyItemMutation = `mutation verifyItem($input: VerifyItemRequest!) {
  verifyItem(verifyItemRequest: $input) { ` + ruleResponseSelection + ` }
}`
	removeItemMutation = `mutation removeItem($input: RemoveItemRequest!) {
  removeItem(removeItemRequest: $input) { ` + ruleResponseSelection + ` }
}`
	completeVerificationMutation = `mutation completeVerification($input: CompleteVerificationRequest!) {
  completeVerification(request: $input) { ` + ruleResponseSelection + ` }
}`
	cancelVerificationMutation = `mutation cancelSecondVerification($input: CancelSecondVerificationRequest!) {
  cancelSecondVerification(request: $input) { ` + ruleResponseSelection + ` }
}`
)

type shipmentClient struct {
	*HTTPClient
	graphqlPath string
}

// NewShipmentClient creates a ShipmentClient sharing http.
func NewShipmentClient(http *HTTPClient, graphqlPath string) ShipmentClient {
	return &shipmentClient{HTTPClient: http, graphqlPath: graphqlPath}
}

// VerificationDetails loads the packed and verified products of a shipment.
func (c *shipmentClient) VerificationDetails(ctx context.Context, shipmentID int64) (*VerificationDetails, error) {
	var details *VerificationDetails
	err := c.GraphQL(ctx, c.graphqlPath, "getShipmentVerificationDetailsById", "getShipmentVerificationDetailsById",
		verificationDetailsQuery, map[string]any{"shipmentId": shipmentID}, &details)
	if err != nil {
		return nil, fmt.Errorf("get verification details of shipment %d: %w", shipmentID, err)
	}
	if details == nil {
		return nil, fmt.Errorf("get verification details of shipment %d: shipment not found", shipmentID)
	}
	return details, nil
}

// NotificationDetails loads the products that must be removed from a shipment.
func (c *shipmentClient) NotificationDetails(ctx context.Context, shipmentID int64) (*NotificationDetails, error) {
	var details *NotificationDetails
	err := c.GraphQL(ctx, c.graphqlPath, "getNotificationDetailsByShipmentId", "getNotificationDetailsByShipmentId",
		notificationDetailsQuery, map[string]any{"shipmentId": shipmentID}, &details)
	if err != nil {
		return nil, fmt.Errorf("get notification details of shipment %d: %w", shipmentID, err)
	}
	if details == nil {
		details = &NotificationDetails{ShipmentID: shipmentID}
	}
	return details, nil
}

// VerifyItem verifies one packed product.
func (c *shipmentClient) VerifyItem(ctx context.Context, req ShipmentItemRequest) (*RuleResponse, error) {
	return c.itemRule(ctx, "verifyItem", verifyItemMutation, req)
}

// RemoveItem removes one ineligible product.
func (c *shipmentClient) RemoveItem(ctx context.Context, req ShipmentItemRequest) (*RuleResponse, error) {
	return c.itemRule(ctx, "removeItem", removeItemMutation, req)
}

// CompleteVerification finishes second verification.
func (c *shipmentClient) CompleteVerification(ctx context.Context, req ShipmentRequest) (*RuleResponse, error) {
	return c.shipmentRule(ctx, "completeVerification", completeVerificationMutation, req)
}

// CancelVerification abandons second verification.
func (c *shipmentClient) CancelVerification(ctx context.Context, req ShipmentRequest) (*RuleResponse, error) {
	return c.shipmentRule(ctx, "cancelSecondVerification", cancelVerificationMutation, req)
}

func (c *shipmentClient) itemRule(ctx context.Context, operation, query string, req ShipmentItemRequest) (*RuleResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s '%s' '%s' in shipment %d: %w", operation, req.UnitNumber, req.ProductCode, req.ShipmentID, err)
	}
	var response RuleResponse
	if err := c.GraphQL(ctx, c.graphqlPath, operation, operation, query, map[string]any{"input": req}, &response); err != nil {
		return nil, fmt.Errorf("%s '%s' '%s' in shipment %d: %w", operation, req.UnitNumber, req.ProductCode, req.ShipmentID, err)
	}
	return &response, nil
}

func (c *shipmentClient) shipmentRule(ctx context.Context, operation, query string, req ShipmentRequest) (*RuleResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s shipment %d: %w", operation, req.ShipmentID, err)
	}
	var response RuleResponse
	if err := c.GraphQL(ctx, c.graphqlPath, operation, operation, query, map[string]any{"input": req}, &response); err != nil {
		return nil, fmt.Errorf("%s shipment %d: %w", operation, req.ShipmentID, err)
	}
	return &response, nil
}

type linkFollower struct {
	*HTTPClient
}

// NewLinkFollower creates a LinkFollower sharing http.
func NewLinkFollower(http *HTTPClient) LinkFollower {
	return &linkFollower{HTTPClient: http}
}

// Follow posts to a link returned in `_links` and decodes the rule response it answers with.
func (c *linkFollower) Follow(ctx context.Context, link string) (*RuleResponse, error) {
	if strings.TrimSpace(link) == "" {
		return nil, fmt.Errorf("follow link: empty link")
	}
	response, err := c.DoReq(ctx, "POST", link, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("follow link '%s': %w", link, err)
	}
	var rule RuleResponse
	if len(response.Bytes()) == 0 {
		return &rule, nil
	}
	if err := json.Unmarshal(response.Bytes(), &rule); err != nil {
		return nil, fmt.Errorf("follow link '%s': failed to unmarshal response: %w", link, err)
	}
	return &rule, nil
}
