package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/notify"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
)

// Redirect targets of the irradiation workflows.
const (
	PathStartIrradiation = "/irradiation/start-irradiation"
	PathIrradiation      = "/irradiation"
)

const (
	MessageDeviceInvalid     = "Irradiator is not valid"
	MessageDeviceFailed      = "Unable to validate irradiator"
	MessageLotInvalid        = "Lot number is not valid"
	MessageLotFailed         = "Unable to validate lot number"
	MessageUnitFailed        = "Unable to validate unit number"
	MessageUnitNotFound      = "No products found for this unit number"
	MessageStartFailed       = "Failed to submit irradiation batch"
	MessageBatchStarted      = "Irradiation batch started successfully"
	MessageCancelIrradiation = "Products added will be removed from the list without finishing the Irradiation process. Are you sure you want to continue?"
)

// startIrradiation loads an irradiator, validates a lot and accumulates eligible products.
type startIrradiation struct {
	*station
	eligibility *EligibilityEngine
	deviceID    string
	lotNumber   string
	candidates  map[string]client.Inventory
	lastScan    time.Time
}

func newStartIrradiation(base *station) *startIrradiation {
	base.prompt = FieldDevice
	return &startIrradiation{station: base, eligibility: NewEligibilityEngine()}
}

func (w *startIrradiation) Reference() string { return w.deviceID }

func (w *startIrradiation) reset() {
	w.restart()
	w.deviceID = ""
	w.lotNumber = ""
	w.candidates = nil
	w.lastScan = time.Time{}
	w.prompt = FieldDevice
}

func (w *startIrradiation) Input(ctx context.Context, in ScanInput) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if w.phase() == PhaseDone {
		w.reset()
	}
	switch in.Field {
	case FieldDevice:
		return w.loadDevice(ctx, in.Value)
	case FieldLot:
		return w.loadLot(ctx, in.Value)
	case scan.FieldUnitNumber:
		return w.scanUnit(ctx, in)
	}
	return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownField, in.Field)
}

// loadDevice validates the irradiator. Once accepted the device is locked and unit input opens.
func (w *startIrradiation) loadDevice(ctx context.Context, raw string) (Outcome, error) {
	if w.phase() != PhaseSetup {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFieldLocked, FieldDevice)
	}
	deviceID := strings.ToUpper(strings.TrimSpace(raw))
	if deviceID == "" {
		return toast(notify.Error(scan.MessageEmptyInput), FieldDevice), nil
	}

	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	valid, err := w.deps.Irradiation.ValidateDevice(ctx, deviceID, w.deps.Facility)
	if err != nil {
		w.log.Error("Device validation failed", zap.String(utils.FieldDeviceID, deviceID), zap.Error(err))
		return toast(notify.Error(MessageDeviceFailed), FieldDevice), w.to(PhaseSetup)
	}
	if !valid {
		return toast(notify.Error(MessageDeviceInvalid), FieldDevice), w.to(PhaseSetup)
	}

	w.deviceID = deviceID
	w.prompt = FieldLot
	w.log.Info("Irradiator loaded", zap.String(utils.FieldDeviceID, deviceID))
	return Outcome{Focus: FieldLot}, w.to(PhaseScanning)
}

// loadLot validates the lot number applied to every product of the batch.
func (w *startIrradiation) loadLot(ctx context.Context, raw string) (Outcome, error) {
	if w.deviceID == "" || w.phase() != PhaseScanning {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFieldLocked, FieldLot)
	}
	lot := strings.ToUpper(strings.TrimSpace(raw))
	if lot == "" {
		return toast(notify.Error(scan.MessageEmptyInput), FieldLot), nil
	}

	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	valid, err := w.deps.Irradiation.ValidateLotNumber(ctx, lot)
	if err != nil {
		w.log.Error("Lot validation failed", zap.String("lot_number", lot), zap.Error(err))
		return toast(notify.Error(MessageLotFailed), FieldLot), w.to(PhaseScanning)
	}
	if !valid {
		return toast(notify.Error(MessageLotInvalid), FieldLot), w.to(PhaseScanning)
	}

	w.lotNumber = lot
	for _, item := range w.acc.Items() {
		w.acc.Update(item.Key(), func(i *batch.Item) { i.LotNumber = lot })
	}
	w.prompt = scan.FieldUnitNumber
	return Outcome{Focus: scan.FieldUnitNumber}, w.to(PhaseScanning)
}

func (w *startIrradiation) scanUnit(ctx context.Context, in ScanInput) (Outcome, error) {
	if w.deviceID == "" {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFieldLocked, scan.FieldUnitNumber)
	}
	if p := w.phase(); p != PhaseScanning && p != PhaseSelecting {
		return Outcome{}, fmt.Errorf("%w: scan while %s", ErrInvalidTransition, p)
	}
	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	w.choices = nil
	w.candidates = nil

	event, out, ok := w.checkUnit(ctx, in)
	if !ok {
		return out, w.to(PhaseScanning)
	}

	inventories, err := w.deps.Irradiation.ValidateUnit(ctx, event.UnitNumber, w.deps.Facility)
	if err != nil {
		w.log.Error("Unit validation failed", zap.String(utils.FieldUnitNumber, event.UnitNumber), zap.Error(err))
		return toast(notify.Error(MessageUnitFailed), scan.FieldUnitNumber), w.to(PhaseScanning)
	}

	fresh := make([]client.Inventory, 0, len(inventories))
	for _, inv := range inventories {
		if !w.acc.Contains(batch.Key{UnitNumber: inv.UnitNumber, ProductCode: inv.ProductCode}) {
			fresh = append(fresh, inv)
		}
	}
	switch {
	case len(inventories) == 0:
		return toast(notify.Error(MessageUnitNotFound), scan.FieldUnitNumber), w.to(PhaseScanning)
	case len(fresh) == 0:
		return toast(notify.Warning(MessageDuplicateProduct), scan.FieldUnitNumber), w.to(PhaseScanning)
	case len(fresh) == 1:
		return w.evaluate(ctx, fresh[0])
	}

	w.candidates = make(map[string]client.Inventory, len(fresh))
	for _, inv := range fresh {
		w.candidates[inv.ProductCode] = inv
		w.choices = append(w.choices, Choice{
			ProductCode:        inv.ProductCode,
			ProductDescription: inv.ProductDescription,
			ProductFamily:      inv.ProductFamily,
			Status:             displayStatus(inv),
		})
	}
	return Outcome{Choices: append([]Choice(nil), w.choices...)}, w.to(PhaseSelecting)
}

// Select picks one of the products offered for the last scanned unit.
func (w *startIrradiation) Select(ctx context.Context, productCode string) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if w.phase() != PhaseSelecting {
		return Outcome{}, fmt.Errorf("%w: select while %s", ErrInvalidTransition, w.phase())
	}
	inv, ok := w.candidates[strings.ToUpper(strings.TrimSpace(productCode))]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownChoice, productCode)
	}
	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	w.choices = nil
	w.candidates = nil
	return w.evaluate(ctx, inv)
}

// evaluate applies the eligibility decision to one product. It runs in the validating phase.
func (w *startIrradiation) evaluate(ctx context.Context, inv client.Inventory) (Outcome, error) {
	d := w.eligibility.Decide(inv)
	log := w.log.With(
		zap.String(utils.FieldUnitNumber, inv.UnitNumber),
		zap.String(utils.FieldProductCode, inv.ProductCode),
		zap.Stringer("verdict", d.Verdict))

	switch d.Verdict {
	case VerdictReject:
		log.Info("Product rejected", zap.String("message", d.Message))
		return toast(notify.Error(d.Message), scan.FieldUnitNumber), w.to(PhaseScanning)
	case VerdictDiscard:
		out, ok := w.discard(ctx, DiscardRequest{
			UnitNumber:    inv.UnitNumber,
			ProductCode:   inv.ProductCode,
			ProductFamily: inv.ProductFamily,
			Description:   inv.ProductDescription,
			Location:      inv.Location,
			TriggeredBy:   client.TriggeredByIrradiation,
			Reason:        d.DiscardReason,
		})
		if !ok {
			return out, w.to(PhaseScanning)
		}
		return w.acknowledge(d.Message, nil, PhaseScanning, PathStartIrradiation)
	}

	added := w.acc.Add(batch.Item{
		UnitNumber:         inv.UnitNumber,
		ProductCode:        inv.ProductCode,
		ProductDescription: inv.ProductDescription,
		ProductFamily:      inv.ProductFamily,
		Location:           inv.Location,
		LotNumber:          w.lotNumber,
		Statuses:           []string{d.Status},
		Quarantined:        d.Quarantined,
		Expired:            d.Expired,
	})
	if !added {
		return toast(notify.Warning(MessageDuplicateProduct), scan.FieldUnitNumber), w.to(PhaseScanning)
	}
	w.lastScan = w.deps.Now()
	log.Info("Product added", zap.Int("count", w.acc.Count()))

	out := Outcome{Focus: scan.FieldUnitNumber}
	if d.Quarantined {
		out.add(notify.Warning(fmt.Sprintf("Product %s is quarantined", inv.ProductCode)))
	}
	return out, w.to(PhaseScanning)
}

func (w *startIrradiation) submitEnabled() bool {
	return w.pending == nil && w.phase() == PhaseScanning &&
		w.deviceID != "" && w.lotNumber != "" && w.acc.Count() > 0
}

// Submit starts the irradiation batch with every accumulated product.
func (w *startIrradiation) Submit(ctx context.Context) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if !w.submitEnabled() {
		return Outcome{}, ErrSubmitDisabled
	}

	items := w.acc.Items()
	req := client.SubmitBatchRequest{
		DeviceID:   w.deviceID,
		StartTime:  w.lastScan.Format(timestampLayout),
		BatchItems: make([]client.SubmitBatchItem, 0, len(items)),
	}
	for _, item := range items {
		req.BatchItems = append(req.BatchItems, client.SubmitBatchItem{
			UnitNumber:  item.UnitNumber,
			ProductCode: item.ProductCode,
			LotNumber:   w.lotNumber,
		})
	}

	return w.submit(ctx, submission{
		operation: "submitBatch",
		reference: w.deviceID,
		items:     items,
		send: func(ctx context.Context) (*client.RuleResponse, error) {
			return w.deps.Irradiation.SubmitBatch(ctx, req)
		},
		successMessage: MessageBatchStarted,
		failureMessage: MessageStartFailed,
		redirect:       PathStartIrradiation,
		onSuccess: func() {
			w.acc.Reset()
			w.lastScan = time.Time{}
		},
	})
}

// Cancel drops the batch after confirmation, or at once when nothing was added.
// The station stays on this workflow, ready for the next irradiator.
func (w *startIrradiation) Cancel(context.Context) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	drop := func(context.Context) (Outcome, error) {
		w.reset()
		return Outcome{Focus: FieldDevice}, nil
	}
	if w.acc.Len() == 0 {
		return drop(context.Background())
	}
	return w.ask(Confirmation{Message: MessageCancelIrradiation}, w.phase(), drop, nil)
}

func (w *startIrradiation) View() View {
	v := w.baseView()
	v.DeviceID = w.deviceID
	v.LotNumber = w.lotNumber
	v.UnitInputEnabled = w.deviceID != "" && w.pending == nil && w.phase() != PhaseDone
	v.SubmitEnabled = w.submitEnabled()
	return v
}
