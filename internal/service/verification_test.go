package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/journal"
	"github.com/anmicius0/unit-batch-station/internal/notify"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testShipment int64 = 42

var (
	packedA = client.ShipmentItem{UnitNumber: testUnit, ProductCode: "E0869V00", ProductFamily: "PLASMA_TRANSFUSABLE"}
	packedB = client.ShipmentItem{UnitNumber: "W036825014002", ProductCode: "E0869V00", ProductFamily: "PLASMA_TRANSFUSABLE"}
)

func details(verified ...client.ShipmentItem) *client.VerificationDetails {
	return &client.VerificationDetails{
		ShipmentID:    testShipment,
		OrderNumber:   "ORD-1",
		PackedItems:   []client.ShipmentItem{packedA, packedB},
		VerifiedItems: verified,
	}
}

func results(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(map[string]any{"results": []any{v}})
	require.NoError(t, err)
	return data
}

func loadedVerification(t *testing.T, f *fixture, n *client.NotificationDetails, verified ...client.ShipmentItem) Workflow {
	t.Helper()
	w := newWorkflow(t, f, KindShipmentVerification)
	f.shipments.On("VerificationDetails", mock.Anything, testShipment).Return(details(verified...), nil).Once()
	f.shipments.On("NotificationDetails", mock.Anything, testShipment).Return(n, nil).Once()
	out, err := w.Input(context.Background(), ScanInput{Field: FieldShipment, Value: "42"})
	require.NoError(t, err)
	require.Empty(t, out.Presentations)
	return w
}

func itemRequest(item client.ShipmentItem) client.ShipmentItemRequest {
	return client.ShipmentItemRequest{
		ShipmentID:  testShipment,
		UnitNumber:  item.UnitNumber,
		ProductCode: item.ProductCode,
		EmployeeID:  testEmployee,
	}
}

func TestVerification_LoadShipment(t *testing.T) {
	f := newFixture()
	w := loadedVerification(t, f, &client.NotificationDetails{ShipmentID: testShipment}, packedA)

	view := w.View()
	assert.Equal(t, testShipment, view.ShipmentID)
	assert.Equal(t, "ORD-1", view.OrderNumber)
	assert.Equal(t, 1, view.Verified)
	assert.Equal(t, 1, view.Remaining)
	assert.InDelta(t, 0.5, view.Progress, 0.0001)
	assert.True(t, view.UnitInputEnabled)
	assert.False(t, view.SubmitEnabled)
	require.Len(t, view.Items, 1)
	assert.Equal(t, []string{batch.StatusVerified}, view.Items[0].Statuses)
	assert.Equal(t, "42", w.Reference())
}

func TestVerification_InvalidShipmentID(t *testing.T) {
	f := newFixture()
	w := newWorkflow(t, f, KindShipmentVerification)

	out, err := w.Input(context.Background(), ScanInput{Field: FieldShipment, Value: "abc"})
	require.NoError(t, err)
	assert.Equal(t, MessageShipmentInvalid, out.Presentations[0].Message)
	assert.Equal(t, FieldShipment, out.Focus)
	f.shipments.AssertNotCalled(t, "VerificationDetails", mock.Anything, mock.Anything)
}

func TestVerification_VerifyThenComplete(t *testing.T) {
	f := newFixture()
	w := loadedVerification(t, f, nil, packedA)
	ctx := context.Background()

	out, err := w.Input(ctx, ScanInput{Field: scan.FieldUnitNumber, Value: "=W03682501400200"})
	require.NoError(t, err)
	assert.Equal(t, scan.FieldProductCode, out.Focus)
	assert.Equal(t, scan.FieldProductCode, w.View().Prompt)

	resp := ruleOK(note("SUCCESS", "Product verified"))
	resp.Results = results(t, details(packedA, packedB))
	f.shipments.On("VerifyItem", mock.Anything, itemRequest(packedB)).Return(resp, nil)

	out, err = w.Input(ctx, ScanInput{Field: scan.FieldProductCode, Value: "=<E0869V00"})
	require.NoError(t, err)
	assert.Equal(t, []string{notify.TypeSuccess}, presentationTypes(out))
	assert.Empty(t, out.Redirect)

	view := w.View()
	assert.Equal(t, 2, view.Verified)
	assert.Equal(t, 0, view.Remaining)
	assert.InDelta(t, 1.0, view.Progress, 0.0001)
	assert.True(t, view.SubmitEnabled)

	f.shipments.On("CompleteVerification", mock.Anything, client.ShipmentRequest{ShipmentID: testShipment, EmployeeID: testEmployee}).
		Return(ruleOK(), nil)
	out, err = w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, MessageVerificationCompleted, out.Presentations[0].Message)
	assert.Equal(t, ShipmentDetailsPath(testShipment), out.Redirect)
	assert.Equal(t, []journal.Result{journal.ResultSuccess}, f.recorder.results())
	f.assertExpectations(t)
}

func TestVerification_VerifyNotifications(t *testing.T) {
	tests := []struct {
		name         string
		resp         *client.RuleResponse
		wantRedirect string
		wantTypes    []string
	}{
		{
			name: "error never navigates",
			resp: &client.RuleResponse{
				RuleCode:      client.RuleCodeBadRequest,
				Notifications: []notify.Notification{note("ERROR", "Product is not part of this shipment")},
				Links:         map[string]string{client.LinkNext: "/shipment/42/verify-products/notifications"},
			},
			wantTypes: []string{notify.TypeError},
		},
		{
			name: "warning follows next link",
			resp: &client.RuleResponse{
				RuleCode:      client.RuleCodeBadRequest,
				Notifications: []notify.Notification{note("WARN", "Product is no longer eligible")},
				Links:         map[string]string{client.LinkNext: "/shipment/42/verify-products/notifications"},
			},
			wantRedirect: "/shipment/42/verify-products/notifications",
			wantTypes:    []string{notify.TypeWarning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := loadedVerification(t, f, nil)
			f.shipments.On("VerifyItem", mock.Anything, itemRequest(packedA)).Return(tt.resp, nil)
			if tt.wantRedirect != "" {
				f.shipments.On("NotificationDetails", mock.Anything, testShipment).Return(&client.NotificationDetails{
					ShipmentID:       testShipment,
					ToBeRemovedItems: []client.ShipmentItem{packedA},
				}, nil).Once()
			}

			out, err := w.Input(context.Background(), ScanInput{Field: scan.FieldUnitNumber, Value: testScan, ProductCode: "E0869V00"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTypes, presentationTypes(out))
			assert.Equal(t, tt.wantRedirect, out.Redirect)
			assert.Equal(t, scan.FieldUnitNumber, out.Focus)
			assert.Equal(t, PhaseScanning, w.View().Phase)
			f.assertExpectations(t)
		})
	}
}

func TestVerification_ConfirmationWithErrorNeverNavigates(t *testing.T) {
	confirm := notify.Notification{Type: "CONFIRMATION", Message: "Continue?"}
	tests := []struct {
		name      string
		blocking  notify.Notification
		wantTypes []string
	}{
		{"error", note("ERROR", "Product is not part of this shipment"), []string{notify.TypeError}},
		{"system", note("SYSTEM", "Shipment service degraded"), []string{notify.TypeSystem}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := loadedVerification(t, f, nil)
			resp := ruleBad(tt.blocking, confirm)
			resp.Links = map[string]string{client.LinkNext: "/shipment/42/verify-products/notifications"}
			f.shipments.On("VerifyItem", mock.Anything, itemRequest(packedA)).Return(resp, nil)

			out, err := w.Input(context.Background(), ScanInput{Field: scan.FieldUnitNumber, Value: testScan, ProductCode: "E0869V00"})
			require.NoError(t, err)
			require.NotNil(t, out.Confirmation)
			assert.Equal(t, tt.wantTypes, presentationTypes(out))
			assert.Empty(t, out.Redirect)

			resolved, err := w.Resolve(context.Background(), out.Confirmation.Token, true)
			require.NoError(t, err)
			assert.Empty(t, resolved.Redirect)
			f.assertExpectations(t)
		})
	}
}

func TestVerification_VerifyTransportError(t *testing.T) {
	f := newFixture()
	w := loadedVerification(t, f, nil)
	f.shipments.On("VerifyItem", mock.Anything, mock.Anything).Return(nil, errors.New("reset by peer"))

	out, err := w.Input(context.Background(), ScanInput{Field: scan.FieldUnitNumber, Value: testScan, ProductCode: "E0869V00"})
	require.NoError(t, err)
	assert.Equal(t, MessageVerifyFailed, out.Presentations[0].Message)
	assert.Equal(t, 0, w.View().Verified)
}

func TestVerification_ProductBeforeUnit(t *testing.T) {
	f := newFixture()
	w := loadedVerification(t, f, nil)

	out, err := w.Input(context.Background(), ScanInput{Field: scan.FieldProductCode, Value: "=<E0869V00"})
	require.NoError(t, err)
	assert.Equal(t, MessageScanUnitFirst, out.Presentations[0].Message)
	assert.Equal(t, scan.FieldUnitNumber, out.Focus)
}

func toBeRemoved() *client.NotificationDetails {
	ineligible := packedA
	ineligible.IneligibleAction = client.IneligibleActionDiscard
	ineligible.IneligibleReason = "EXPIRED"
	ineligible.IneligibleMessage = "This product is expired and has been discarded. Place in biohazard container."
	return &client.NotificationDetails{ShipmentID: testShipment, ToBeRemovedItems: []client.ShipmentItem{ineligible}}
}

func TestVerification_RemoveItemTriggersDiscard(t *testing.T) {
	f := newFixture()
	pending := toBeRemoved()
	w := loadedVerification(t, f, pending)
	assert.Len(t, w.View().ToBeRemoved, 1)
	assert.False(t, w.View().SubmitEnabled)

	removed := pending.ToBeRemovedItems[0]
	resp := ruleOK()
	resp.Results = results(t, client.RemoveItemResult{RemovedItem: &removed, RemovedItems: []client.ShipmentItem{removed}})
	f.shipments.On("RemoveItem", mock.Anything, itemRequest(packedA)).Return(resp, nil)
	f.shipments.On("VerificationDetails", mock.Anything, testShipment).Return(&client.VerificationDetails{
		ShipmentID:  testShipment,
		PackedItems: []client.ShipmentItem{packedB},
	}, nil).Once()
	f.inventory.On("Discard", mock.Anything, mock.MatchedBy(func(req client.DiscardRequest) bool {
		return req.TriggeredBy == client.TriggeredByShipping &&
			req.ReasonDescriptionKey == "EXPIRED" &&
			req.LocationCode == testFacility &&
			req.ProductFamily == "PLASMA_TRANSFUSABLE"
	})).Return(&client.DiscardResult{UnitNumber: testUnit}, nil)

	out, err := w.Input(context.Background(), ScanInput{Field: scan.FieldUnitNumber, Value: testScan, ProductCode: "E0869V00"})
	require.NoError(t, err)
	require.NotNil(t, out.Confirmation)
	assert.True(t, out.Confirmation.Acknowledgment)
	assert.Equal(t, removed.IneligibleMessage, out.Confirmation.Message)

	_, err = w.Resolve(context.Background(), out.Confirmation.Token, true)
	require.NoError(t, err)

	view := w.View()
	assert.Empty(t, view.ToBeRemoved)
	assert.False(t, view.UnitInputEnabled, "inputs close once nothing is left to remove")
	assert.Equal(t, 1, view.Remaining)
	f.assertExpectations(t)
}

func TestVerification_RemoveItemDiscardFails(t *testing.T) {
	f := newFixture()
	pending := toBeRemoved()
	w := loadedVerification(t, f, pending)

	removed := pending.ToBeRemovedItems[0]
	resp := ruleOK()
	resp.Results = results(t, client.RemoveItemResult{RemovedItem: &removed})
	f.shipments.On("RemoveItem", mock.Anything, mock.Anything).Return(resp, nil)
	f.shipments.On("VerificationDetails", mock.Anything, testShipment).Return(details(), nil)
	f.inventory.On("Discard", mock.Anything, mock.Anything).Return(nil, nil)

	out, err := w.(Remover).RemoveItem(context.Background(), batch.Key{UnitNumber: removed.UnitNumber, ProductCode: removed.ProductCode})
	require.NoError(t, err)
	require.Len(t, out.Presentations, 1)
	assert.Equal(t, notify.TypeSystem, out.Presentations[0].Type)
	assert.Equal(t, MessageDiscardFailed, out.Presentations[0].Message)
	assert.Nil(t, out.Confirmation)
}

func TestVerification_RemoveItemBadRequest(t *testing.T) {
	f := newFixture()
	w := loadedVerification(t, f, toBeRemoved())
	f.shipments.On("RemoveItem", mock.Anything, mock.Anything).Return(ruleBad(note("ERROR", "Product is not to be removed")), nil)

	out, err := w.(Remover).RemoveItem(context.Background(), batch.Key{UnitNumber: "W036825014002", ProductCode: "E0869V00"})
	require.NoError(t, err)
	assert.Equal(t, []string{notify.TypeError}, presentationTypes(out))
	assert.Equal(t, scan.FieldUnitNumber, out.Focus)
	assert.Len(t, w.View().ToBeRemoved, 1)
	f.inventory.AssertNotCalled(t, "Discard", mock.Anything, mock.Anything)
}

func TestVerification_CancelAsksThenCancels(t *testing.T) {
	f := newFixture()
	w := loadedVerification(t, f, nil, packedA)

	out, err := w.Cancel(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out.Confirmation)
	assert.Equal(t, MessageCancelVerification, out.Confirmation.Message)
	f.shipments.AssertNotCalled(t, "CancelVerification", mock.Anything, mock.Anything)

	f.shipments.On("CancelVerification", mock.Anything, client.ShipmentRequest{ShipmentID: testShipment, EmployeeID: testEmployee}).
		Return(ruleOK(), nil)
	resolved, err := w.Resolve(context.Background(), out.Confirmation.Token, true)
	require.NoError(t, err)
	assert.Equal(t, MessageVerificationCancelled, resolved.Presentations[0].Message)
	assert.Equal(t, ShipmentDetailsPath(testShipment), resolved.Redirect)
	assert.Equal(t, PhaseDone, w.View().Phase)
}

func TestVerification_RemoveSelectedUnsupported(t *testing.T) {
	f := newFixture()
	w := loadedVerification(t, f, nil, packedA)
	_, err := w.RemoveSelected()
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = w.Select(context.Background(), "E0869V00")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestProgress(t *testing.T) {
	tests := []struct {
		verified, remaining int
		expected            float64
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 3, 0.25},
		{4, 0, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, Progress(tt.verified, tt.remaining), 0.0001)
	}
}
