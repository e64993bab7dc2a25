package service

import (
	"context"

	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/journal"
	"github.com/stretchr/testify/mock"
)

type MockIrradiationClient struct {
	mock.Mock
}

func (m *MockIrradiationClient) ValidateDevice(ctx context.Context, deviceID, location string) (bool, error) {
	args := m.Called(ctx, deviceID, location)
	return args.Bool(0), args.Error(1)
}

func (m *MockIrradiationClient) ValidateLotNumber(ctx context.Context, lotNumber string) (bool, error) {
	args := m.Called(ctx, lotNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockIrradiationClient) ValidateUnit(ctx context.Context, unitNumber, location string) ([]client.Inventory, error) {
	args := m.Called(ctx, unitNumber, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]client.Inventory), args.Error(1)
}

func (m *MockIrradiationClient) SubmitBatch(ctx context.Context, req client.SubmitBatchRequest) (*client.RuleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RuleResponse), args.Error(1)
}

func (m *MockIrradiationClient) ActiveBatch(ctx context.Context, deviceID, location string) (*client.ActiveBatch, error) {
	args := m.Called(ctx, deviceID, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.ActiveBatch), args.Error(1)
}

func (m *MockIrradiationClient) CompleteBatch(ctx context.Context, req client.CompleteBatchRequest) (*client.RuleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RuleResponse), args.Error(1)
}

type MockInventoryClient struct {
	mock.Mock
}

func (m *MockInventoryClient) VerifyCheckDigit(ctx context.Context, unitNumber, checkDigit string) (bool, error) {
	args := m.Called(ctx, unitNumber, checkDigit)
	return args.Bool(0), args.Error(1)
}

func (m *MockInventoryClient) Discard(ctx context.Context, req client.DiscardRequest) (*client.DiscardResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.DiscardResult), args.Error(1)
}

type MockShipmentClient struct {
	mock.Mock
}

func (m *MockShipmentClient) VerificationDetails(ctx context.Context, shipmentID int64) (*client.VerificationDetails, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.VerificationDetails), args.Error(1)
}

func (m *MockShipmentClient) NotificationDetails(ctx context.Context, shipmentID int64) (*client.NotificationDetails, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.NotificationDetails), args.Error(1)
}

func (m *MockShipmentClient) VerifyItem(ctx context.Context, req client.ShipmentItemRequest) (*client.RuleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RuleResponse), args.Error(1)
}

func (m *MockShipmentClient) RemoveItem(ctx context.Context, req client.ShipmentItemRequest) (*client.RuleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RuleResponse), args.Error(1)
}

func (m *MockShipmentClient) CompleteVerification(ctx context.Context, req client.ShipmentRequest) (*client.RuleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RuleResponse), args.Error(1)
}

func (m *MockShipmentClient) CancelVerification(ctx context.Context, req client.ShipmentRequest) (*client.RuleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RuleResponse), args.Error(1)
}

type MockLinkFollower struct {
	mock.Mock
}

func (m *MockLinkFollower) Follow(ctx context.Context, link string) (*client.RuleResponse, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RuleResponse), args.Error(1)
}

type fakeRecorder struct {
	entries []journal.Entry
}

func (r *fakeRecorder) Record(_ context.Context, e journal.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeRecorder) results() []journal.Result {
	out := make([]journal.Result, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Result)
	}
	return out
}
