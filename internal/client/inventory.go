package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// CheckDigitsEndpoint verifies a unit number's check digit.
const CheckDigitsEndpoint = "/v1/check-digits"

const discardProductMutation = `mutation discardProduct($input: DiscardRequest!) {
  discardProduct(input: $input) { unitNumber productCode reasonDescriptionKey }
}`

type inventoryClient struct {
	*HTTPClient
	graphqlPath string
}

// NewInventoryClient creates an InventoryClient sharing http.
func NewInventoryClient(http *HTTPClient, graphqlPath string) InventoryClient {
	return &inventoryClient{HTTPClient: http, graphqlPath: graphqlPath}
}

// VerifyCheckDigit asks the backend whether checkDigit matches unitNumber.
func (c *inventoryClient) VerifyCheckDigit(ctx context.Context, unitNumber, checkDigit string) (bool, error) {
	response, err := c.DoReq(ctx, "GET", CheckDigitsEndpoint, nil, map[string]string{
		"unitNumber": unitNumber,
		"checkDigit": checkDigit,
	})
	if err != nil {
		return false, fmt.Errorf("verify check digit of '%s': %w", unitNumber, err)
	}
	var result CheckDigitResult
	if err := json.Unmarshal(response.Bytes(), &result); err != nil {
		return false, fmt.Errorf("verify check digit of '%s': failed to unmarshal response: %w", unitNumber, err)
	}
	return result.IsValid, nil
}

// Discard discards a product. A nil result with no error means the backend did not discard it.
func (c *inventoryClient) Discard(ctx context.Context, req DiscardRequest) (*DiscardResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("discard '%s' '%s': %w", req.UnitNumber, req.ProductCode, err)
	}
	var result *DiscardResult
	err := c.GraphQL(ctx, c.graphqlPath, "discardProduct", "discardProduct", discardProductMutation,
		map[string]any{"input": req}, &result)
	if err != nil {
		return nil, fmt.Errorf("discard '%s' '%s': %w", req.UnitNumber, req.ProductCode, err)
	}
	return result, nil
}
