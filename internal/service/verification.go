package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/notify"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
)

const (
	MessageShipmentInvalid       = "Shipment id is not valid"
	MessageShipmentFailed        = "Unable to load shipment verification"
	MessageScanUnitFirst         = "Scan the unit number first"
	MessageVerifyFailed          = "Unable to verify product"
	MessageRemoveFailed          = "Unable to remove product"
	MessageVerificationCompleted = "Second verification completed successfully"
	MessageVerificationFailed    = "Failed to complete second verification"
	MessageVerificationCancelled = "Second verification cancelled"
	MessageCancelFailed          = "Failed to cancel second verification"
	MessageCancelVerification    = "All verified products will be cleared from this shipment. Are you sure you want to cancel the second verification?"
)

// ShipmentDetailsPath is where a finished verification leads.
func ShipmentDetailsPath(shipmentID int64) string {
	return fmt.Sprintf("/shipment/%d/shipment-details", shipmentID)
}

// verification is the second verification of a packed shipment. Each product is scanned again
// and verified by the backend; ineligible products are scanned out before completion.
type verification struct {
	*station
	shipmentID  int64
	orderNumber string
	packed      []client.ShipmentItem
	verified    []client.ShipmentItem
	toBeRemoved []client.ShipmentItem
	removed     []client.ShipmentItem
	// removalStarted is set once the backend asked for products to be removed.
	removalStarted bool
	pendingUnit    string
}

func newVerification(base *station) *verification {
	base.prompt = FieldShipment
	return &verification{station: base}
}

func (w *verification) Reference() string {
	if w.shipmentID == 0 {
		return ""
	}
	return strconv.FormatInt(w.shipmentID, 10)
}

func (w *verification) reset() {
	w.restart()
	w.shipmentID = 0
	w.orderNumber = ""
	w.packed, w.verified, w.toBeRemoved, w.removed = nil, nil, nil, nil
	w.removalStarted = false
	w.pendingUnit = ""
	w.prompt = FieldShipment
}

func (w *verification) Input(ctx context.Context, in ScanInput) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if w.phase() == PhaseDone {
		w.reset()
	}
	switch in.Field {
	case FieldShipment:
		return w.loadShipment(ctx, in.Value)
	case scan.FieldUnitNumber:
		return w.scanUnit(ctx, in)
	case scan.FieldProductCode:
		return w.scanProduct(ctx, in.Value)
	}
	return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownField, in.Field)
}

// loadShipment fetches verification and notification details. Loading again refreshes them.
func (w *verification) loadShipment(ctx context.Context, raw string) (Outcome, error) {
	if p := w.phase(); p != PhaseSetup && p != PhaseScanning {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFieldLocked, FieldShipment)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return toast(notify.Error(MessageShipmentInvalid), FieldShipment), nil
	}

	resume := w.phase()
	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	details, err := w.deps.Shipments.VerificationDetails(ctx, id)
	if err != nil || details == nil {
		w.log.Error("Loading verification details failed", zap.Int64(utils.FieldShipmentID, id), zap.Error(err))
		return toast(notify.Error(MessageShipmentFailed), FieldShipment), w.to(resume)
	}
	notifications, err := w.deps.Shipments.NotificationDetails(ctx, id)
	if err != nil {
		w.log.Error("Loading notification details failed", zap.Int64(utils.FieldShipmentID, id), zap.Error(err))
		return toast(notify.Error(MessageShipmentFailed), FieldShipment), w.to(resume)
	}

	if id != w.shipmentID {
		w.reset()
		if err := w.to(PhaseValidating); err != nil {
			return Outcome{}, err
		}
	}
	w.shipmentID = id
	w.removalStarted = false
	w.applyDetails(details)
	w.applyNotifications(notifications)
	w.pendingUnit = ""
	w.prompt = scan.FieldUnitNumber
	w.log.Info("Shipment loaded",
		zap.Int64(utils.FieldShipmentID, id),
		zap.Int("packed", len(w.packed)),
		zap.Int("verified", len(w.verified)),
		zap.Int("to_be_removed", len(w.toBeRemoved)))
	return Outcome{Focus: scan.FieldUnitNumber}, w.to(PhaseScanning)
}

func (w *verification) applyDetails(d *client.VerificationDetails) {
	if d == nil {
		return
	}
	if d.OrderNumber != "" {
		w.orderNumber = d.OrderNumber
	}
	w.packed = d.PackedItems
	w.verified = d.VerifiedItems

	keep := make(map[batch.Key]struct{}, len(d.VerifiedItems))
	for _, si := range d.VerifiedItems {
		key := batch.Key{UnitNumber: si.UnitNumber, ProductCode: si.ProductCode}
		keep[key] = struct{}{}
		status := si.Status
		if status == "" {
			status = batch.StatusVerified
		}
		w.acc.Add(batch.Item{
			UnitNumber:         si.UnitNumber,
			ProductCode:        si.ProductCode,
			ProductDescription: si.ProductDescription,
			ProductFamily:      si.ProductFamily,
			Statuses:           []string{status},
		})
	}
	for _, item := range w.acc.Items() {
		if _, ok := keep[item.Key()]; !ok {
			w.acc.Remove(item.Key())
		}
	}
}

func (w *verification) applyNotifications(n *client.NotificationDetails) {
	if n == nil {
		w.toBeRemoved, w.removed = nil, nil
		return
	}
	w.toBeRemoved = n.ToBeRemovedItems
	w.removed = n.RemovedItems
	if len(w.toBeRemoved) > 0 {
		w.removalStarted = true
	}
}

// removing reports whether scans pull products out instead of verifying them.
func (w *verification) removing() bool {
	return len(w.toBeRemoved) > 0
}

func (w *verification) inputEnabled() bool {
	return w.shipmentID != 0 && w.pending == nil && w.phase() != PhaseDone &&
		!(w.removalStarted && len(w.toBeRemoved) == 0)
}

func (w *verification) scanUnit(ctx context.Context, in ScanInput) (Outcome, error) {
	if !w.inputEnabled() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFieldLocked, scan.FieldUnitNumber)
	}
	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	event, out, ok := w.checkUnit(ctx, in)
	if !ok {
		return out, w.to(PhaseScanning)
	}
	if err := w.to(PhaseScanning); err != nil {
		return Outcome{}, err
	}
	w.pendingUnit = event.UnitNumber
	if in.ProductCode == "" {
		w.prompt = scan.FieldProductCode
		return Outcome{Focus: scan.FieldProductCode}, nil
	}
	return w.scanProduct(ctx, in.ProductCode)
}

func (w *verification) scanProduct(ctx context.Context, raw string) (Outcome, error) {
	if !w.inputEnabled() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFieldLocked, scan.FieldProductCode)
	}
	if w.pendingUnit == "" {
		return toast(notify.Warning(MessageScanUnitFirst), scan.FieldUnitNumber), nil
	}
	event, err := w.normalizer.ProductCode(raw)
	if err != nil {
		return inputFailure(err, scan.FieldProductCode), nil
	}

	key := batch.Key{UnitNumber: w.pendingUnit, ProductCode: event.ProductCode}
	w.pendingUnit = ""
	w.prompt = scan.FieldUnitNumber
	if w.removing() {
		return w.RemoveItem(ctx, key)
	}
	return w.verify(ctx, key)
}

func (w *verification) itemRequest(key batch.Key) client.ShipmentItemRequest {
	return client.ShipmentItemRequest{
		ShipmentID:  w.shipmentID,
		UnitNumber:  key.UnitNumber,
		ProductCode: key.ProductCode,
		EmployeeID:  w.deps.EmployeeID,
	}
}

func (w *verification) verify(ctx context.Context, key batch.Key) (Outcome, error) {
	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	log := w.log.With(zap.String(utils.FieldUnitNumber, key.UnitNumber), zap.String(utils.FieldProductCode, key.ProductCode))

	resp, err := w.deps.Shipments.VerifyItem(ctx, w.itemRequest(key))
	if err != nil {
		log.Error("Verify item failed", zap.Error(err))
		return toast(notify.Error(MessageVerifyFailed), scan.FieldUnitNumber), w.to(PhaseScanning)
	}
	log.Info("Item verification answered", zap.String("rule_code", resp.RuleCode))
	return w.applyItemResponse(ctx, resp, func(ctx context.Context, resp *client.RuleResponse) {
		var details client.VerificationDetails
		if ok, err := resp.DecodeResults(&details); err == nil && ok {
			w.applyDetails(&details)
			return
		}
		w.refresh(ctx)
	})
}

// applyItemResponse presents an item rule response. A CONFIRMATION is followed through its confirm
// link once accepted, and navigation waits until then. ERROR and SYSTEM notifications never navigate.
func (w *verification) applyItemResponse(ctx context.Context, resp *client.RuleResponse, onOK func(context.Context, *client.RuleResponse)) (Outcome, error) {
	out, confirmation := splitNotifications(resp.Notifications)
	if resp.OK() {
		onOK(ctx, resp)
	} else {
		out.Focus = scan.FieldUnitNumber
	}

	next := resp.Link(client.LinkNext)
	if notify.Has(resp.Notifications, notify.TypeError, notify.TypeSystem) {
		next = ""
	}
	if next != "" {
		w.refreshNotifications(ctx)
	}

	if confirmation != nil {
		confirmLink := resp.Link(client.LinkConfirm)
		asked, err := w.ask(confirmationFrom(*confirmation), PhaseScanning,
			func(ctx context.Context) (Outcome, error) {
				if confirmLink == "" || w.deps.Links == nil {
					return Outcome{Redirect: next}, nil
				}
				if err := w.to(PhaseValidating); err != nil {
					return Outcome{}, err
				}
				followed, err := w.deps.Links.Follow(ctx, confirmLink)
				if err != nil {
					w.log.Error("Following confirmation failed", zap.Error(err))
					return toast(notify.Error(MessageVerifyFailed), scan.FieldUnitNumber), w.to(PhaseScanning)
				}
				return w.applyItemResponse(ctx, followed, onOK)
			}, nil)
		if err != nil {
			return Outcome{}, err
		}
		out.merge(asked)
		return out, nil
	}

	out.Redirect = next
	if out.Focus == "" {
		out.Focus = scan.FieldUnitNumber
	}
	return out, w.to(PhaseScanning)
}

// RemoveItem pulls an ineligible product out of the shipment. Products flagged for discard are
// discarded before the operator acknowledges the removal.
func (w *verification) RemoveItem(ctx context.Context, key batch.Key) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if w.shipmentID == 0 {
		return Outcome{}, fmt.Errorf("%w: remove before a shipment is loaded", ErrInvalidTransition)
	}
	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	log := w.log.With(zap.String(utils.FieldUnitNumber, key.UnitNumber), zap.String(utils.FieldProductCode, key.ProductCode))

	resp, err := w.deps.Shipments.RemoveItem(ctx, w.itemRequest(key))
	if err != nil {
		log.Error("Remove item failed", zap.Error(err))
		return toast(notify.Error(MessageRemoveFailed), scan.FieldUnitNumber), w.to(PhaseScanning)
	}
	log.Info("Item removal answered", zap.String("rule_code", resp.RuleCode))

	next := resp.Link(client.LinkNext)
	if notify.Has(resp.Notifications, notify.TypeError, notify.TypeSystem) {
		next = ""
	}

	if !resp.OK() {
		out, _ := splitNotifications(resp.Notifications)
		out.Focus = scan.FieldUnitNumber
		out.Redirect = next
		return out, w.to(PhaseScanning)
	}

	var result client.RemoveItemResult
	if ok, err := resp.DecodeResults(&result); err != nil {
		log.Warn("Unreadable removal result", zap.Error(err))
	} else if ok {
		w.toBeRemoved = result.ToBeRemovedItems
		w.removed = result.RemovedItems
	}
	w.refresh(ctx)

	removed := result.RemovedItem
	if removed == nil {
		return Outcome{Focus: scan.FieldUnitNumber, Redirect: next}, w.to(PhaseScanning)
	}
	if removed.IneligibleAction == client.IneligibleActionDiscard {
		out, ok := w.discard(ctx, DiscardRequest{
			UnitNumber:    removed.UnitNumber,
			ProductCode:   removed.ProductCode,
			ProductFamily: removed.ProductFamily,
			Description:   removed.ProductDescription,
			TriggeredBy:   client.TriggeredByShipping,
			Reason:        removed.IneligibleReason,
		})
		if !ok {
			out.Redirect = next
			return out, w.to(PhaseScanning)
		}
		return w.acknowledge(removed.IneligibleMessage, nil, PhaseScanning, next)
	}
	if removed.IneligibleMessage == "" {
		return Outcome{Focus: scan.FieldUnitNumber, Redirect: next}, w.to(PhaseScanning)
	}
	return w.acknowledge(removed.IneligibleMessage, removed.Details, PhaseScanning, next)
}

// refresh reloads verification details, keeping the current ones on failure.
func (w *verification) refresh(ctx context.Context) {
	details, err := w.deps.Shipments.VerificationDetails(ctx, w.shipmentID)
	if err != nil {
		w.log.Warn("Refreshing verification details failed", zap.Int64(utils.FieldShipmentID, w.shipmentID), zap.Error(err))
		return
	}
	w.applyDetails(details)
}

func (w *verification) refreshNotifications(ctx context.Context) {
	n, err := w.deps.Shipments.NotificationDetails(ctx, w.shipmentID)
	if err != nil {
		w.log.Warn("Refreshing notification details failed", zap.Int64(utils.FieldShipmentID, w.shipmentID), zap.Error(err))
		return
	}
	w.applyNotifications(n)
}

// counters returns the verified and remaining products.
func (w *verification) counters() (verified, remaining int) {
	done := make(map[batch.Key]struct{}, len(w.verified))
	for _, si := range w.verified {
		done[batch.Key{UnitNumber: si.UnitNumber, ProductCode: si.ProductCode}] = struct{}{}
	}
	for _, si := range w.packed {
		if _, ok := done[batch.Key{UnitNumber: si.UnitNumber, ProductCode: si.ProductCode}]; !ok {
			remaining++
		}
	}
	return len(w.verified), remaining
}

// Progress is verified / (verified + remaining), or 0 when both are 0.
func Progress(verified, remaining int) float64 {
	if verified+remaining == 0 {
		return 0
	}
	return float64(verified) / float64(verified+remaining)
}

func (w *verification) submitEnabled() bool {
	if w.pending != nil || w.phase() != PhaseScanning || w.shipmentID == 0 || w.acc.Count() == 0 {
		return false
	}
	_, remaining := w.counters()
	return remaining == 0 && len(w.toBeRemoved) == 0
}

// Submit completes the second verification.
func (w *verification) Submit(ctx context.Context) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if !w.submitEnabled() {
		return Outcome{}, ErrSubmitDisabled
	}
	req := client.ShipmentRequest{ShipmentID: w.shipmentID, EmployeeID: w.deps.EmployeeID}
	return w.submit(ctx, submission{
		operation: "completeVerification",
		reference: w.Reference(),
		items:     w.acc.Items(),
		send: func(ctx context.Context) (*client.RuleResponse, error) {
			return w.deps.Shipments.CompleteVerification(ctx, req)
		},
		successMessage: MessageVerificationCompleted,
		failureMessage: MessageVerificationFailed,
		redirect:       ShipmentDetailsPath(w.shipmentID),
		onSuccess:      w.acc.Reset,
	})
}

// Cancel asks for confirmation, then cancels the verification in the backend.
func (w *verification) Cancel(ctx context.Context) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if w.shipmentID == 0 {
		w.reset()
		return Outcome{}, nil
	}
	if w.phase() != PhaseScanning {
		return Outcome{}, fmt.Errorf("%w: cancel while %s", ErrInvalidTransition, w.phase())
	}
	req := client.ShipmentRequest{ShipmentID: w.shipmentID, EmployeeID: w.deps.EmployeeID}
	return w.ask(Confirmation{Message: MessageCancelVerification}, PhaseScanning,
		func(ctx context.Context) (Outcome, error) {
			return w.submit(ctx, submission{
				operation: "cancelVerification",
				reference: w.Reference(),
				items:     w.acc.Items(),
				send: func(ctx context.Context) (*client.RuleResponse, error) {
					return w.deps.Shipments.CancelVerification(ctx, req)
				},
				successMessage: MessageVerificationCancelled,
				failureMessage: MessageCancelFailed,
				redirect:       ShipmentDetailsPath(w.shipmentID),
				onSuccess:      w.acc.Reset,
			})
		}, nil)
}

// RemoveSelected is not offered: verified products are backend state.
func (w *verification) RemoveSelected() (Outcome, error) {
	return Outcome{}, ErrUnsupported
}

func (w *verification) View() View {
	v := w.baseView()
	v.ShipmentID = w.shipmentID
	v.OrderNumber = w.orderNumber
	v.Verified, v.Remaining = w.counters()
	v.Progress = Progress(v.Verified, v.Remaining)
	v.UnitInputEnabled = w.inputEnabled()
	v.SubmitEnabled = w.submitEnabled()
	for i, si := range w.toBeRemoved {
		v.ToBeRemoved = append(v.ToBeRemoved, batch.Item{
			UnitNumber:         si.UnitNumber,
			ProductCode:        si.ProductCode,
			ProductDescription: si.ProductDescription,
			ProductFamily:      si.ProductFamily,
			Statuses:           []string{si.IneligibleStatus},
			Order:              len(w.toBeRemoved) - i,
		})
	}
	return v
}
