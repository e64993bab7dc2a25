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
	MessageBatchLoadFailed = "Unable to load irradiation batch"
	MessageNoActiveBatch   = "No open irradiation batch found for this irradiator"
	MessageUnitNotInBatch  = "Unit number is not part of this batch"
	MessageSelectToInspect = "Select at least one product to inspect"
	MessageReasonRequired  = "Select a reason for products that were not irradiated"
	MessageBatchCompleted  = "Batch completed successfully"
	MessageCompleteFailed  = "Failed to complete irradiation batch"
)

const messageInspectedConsequence = "%d product(s) not irradiated will be %s (%s)"

// Inspection consequences of a failed visual inspection.
const (
	ConsequenceDiscard    = "DISCARD"
	ConsequenceQuarantine = "QUARANTINE"
)

// Item filters of the close irradiation list.
const (
	FilterAll      = "all"
	FilterComplete = "complete"
	FilterPending  = "pending"
)

// InspectionReason explains why products were not irradiated. Lower Priority wins.
type InspectionReason struct {
	Code        string `json:"code"`
	Consequence string `json:"consequence"`
	Priority    int    `json:"priority"`
}

// Inspection is the visual check of the irradiation indicator on the selected products.
type Inspection struct {
	Irradiated bool               `json:"irradiated"`
	Reasons    []InspectionReason `json:"reasons,omitempty"`
	Comment    string             `json:"comment,omitempty"`
}

// closeIrradiation loads the open batch of an irradiator and records the inspection of each product.
type closeIrradiation struct {
	*station
	deviceID string
	batchID  int64
	filter   string
}

func newCloseIrradiation(base *station) *closeIrradiation {
	base.prompt = FieldDevice
	return &closeIrradiation{station: base, filter: FilterAll}
}

func (w *closeIrradiation) Reference() string {
	if w.batchID == 0 {
		return w.deviceID
	}
	return strconv.FormatInt(w.batchID, 10)
}

func (w *closeIrradiation) reset() {
	w.restart()
	w.deviceID = ""
	w.batchID = 0
	w.filter = FilterAll
	w.prompt = FieldDevice
}

func (w *closeIrradiation) Input(ctx context.Context, in ScanInput) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if w.phase() == PhaseDone {
		w.reset()
	}
	switch in.Field {
	case FieldDevice:
		return w.loadBatch(ctx, in.Value)
	case scan.FieldUnitNumber:
		return w.scanUnit(ctx, in)
	}
	return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownField, in.Field)
}

// loadBatch fetches the active batch of the device. Its products start disabled until scanned.
func (w *closeIrradiation) loadBatch(ctx context.Context, raw string) (Outcome, error) {
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
	active, err := w.deps.Irradiation.ActiveBatch(ctx, deviceID, w.deps.Facility)
	if err != nil {
		w.log.Error("Loading active batch failed", zap.String(utils.FieldDeviceID, deviceID), zap.Error(err))
		return toast(notify.Error(MessageBatchLoadFailed), FieldDevice), w.to(PhaseSetup)
	}
	if active == nil || len(active.BatchItems) == 0 {
		return toast(notify.Error(MessageNoActiveBatch), FieldDevice), w.to(PhaseSetup)
	}

	for _, bi := range active.BatchItems {
		status := bi.Status
		if status == "" {
			status = batch.StatusAvailable
		}
		w.acc.Add(batch.Item{
			UnitNumber:         bi.UnitNumber,
			ProductCode:        bi.ProductCode,
			ProductDescription: bi.ProductDescription,
			ProductFamily:      bi.ProductFamily,
			LotNumber:          bi.LotNumber,
			Statuses:           []string{status, batch.StatusPendingInspection},
			Disabled:           true,
		})
	}
	w.deviceID = deviceID
	w.batchID = active.BatchID
	w.prompt = scan.FieldUnitNumber
	w.log.Info("Active batch loaded",
		zap.String(utils.FieldDeviceID, deviceID),
		zap.Int64(utils.FieldBatchID, active.BatchID),
		zap.Int("items", len(active.BatchItems)))
	return Outcome{Focus: scan.FieldUnitNumber}, w.to(PhaseScanning)
}

// scanUnit enables every product of the scanned unit.
func (w *closeIrradiation) scanUnit(ctx context.Context, in ScanInput) (Outcome, error) {
	if w.batchID == 0 {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFieldLocked, scan.FieldUnitNumber)
	}
	if err := w.to(PhaseValidating); err != nil {
		return Outcome{}, err
	}
	event, out, ok := w.checkUnit(ctx, in)
	if !ok {
		return out, w.to(PhaseScanning)
	}
	if !w.acc.ContainsUnit(event.UnitNumber) {
		return toast(notify.Warning(MessageUnitNotInBatch), scan.FieldUnitNumber), w.to(PhaseScanning)
	}
	if w.acc.Enable(event.UnitNumber) == 0 {
		return toast(notify.Warning(MessageDuplicateProduct), scan.FieldUnitNumber), w.to(PhaseScanning)
	}
	w.log.Info("Unit enabled for inspection", zap.String(utils.FieldUnitNumber, event.UnitNumber))
	return Outcome{Focus: scan.FieldUnitNumber}, w.to(PhaseScanning)
}

// Inspect records inspection on the selected products that were not inspected yet.
func (w *closeIrradiation) Inspect(_ context.Context, in Inspection) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if w.phase() != PhaseScanning {
		return Outcome{}, fmt.Errorf("%w: inspect while %s", ErrInvalidTransition, w.phase())
	}

	var targets []batch.Item
	for _, item := range w.acc.SelectedItems() {
		if !item.Disabled && !item.Inspected {
			targets = append(targets, item)
		}
	}
	if len(targets) == 0 {
		return toast(notify.Warning(MessageSelectToInspect), ""), nil
	}

	var reason InspectionReason
	if !in.Irradiated {
		if len(in.Reasons) == 0 {
			return toast(notify.Error(MessageReasonRequired), ""), nil
		}
		reason = in.Reasons[0]
		for _, r := range in.Reasons[1:] {
			if r.Priority < reason.Priority {
				reason = r
			}
		}
	}

	for _, item := range targets {
		w.acc.Update(item.Key(), func(i *batch.Item) {
			status := batch.StatusAvailable
			if len(i.Statuses) > 0 {
				status = i.Statuses[0]
			}
			i.Inspected = true
			i.Irradiated = in.Irradiated
			if in.Irradiated {
				i.Statuses = []string{status, batch.StatusIrradiated}
				return
			}
			if status != batch.StatusDiscarded {
				status = consequenceStatus(reason.Consequence, status)
			}
			i.Statuses = []string{status, batch.StatusNotIrradiated}
		})
	}
	w.acc.ClearSelection()
	w.log.Info("Products inspected", zap.Int("count", len(targets)), zap.Bool("irradiated", in.Irradiated), zap.String("reason", reason.Code))

	if in.Irradiated {
		return Outcome{Focus: scan.FieldUnitNumber}, nil
	}
	switch reason.Consequence {
	case ConsequenceDiscard:
		return toast(notify.Error(fmt.Sprintf(messageInspectedConsequence, len(targets), "discarded", reason.Code)), scan.FieldUnitNumber), nil
	case ConsequenceQuarantine:
		return toast(notify.Warning(fmt.Sprintf(messageInspectedConsequence, len(targets), "quarantined", reason.Code)), scan.FieldUnitNumber), nil
	}
	return Outcome{Focus: scan.FieldUnitNumber}, nil
}

func consequenceStatus(consequence, current string) string {
	switch consequence {
	case ConsequenceDiscard:
		return batch.StatusDiscarded
	case ConsequenceQuarantine:
		return batch.StatusQuarantined
	}
	return current
}

// SetFilter restricts the displayed products.
func (w *closeIrradiation) SetFilter(filter string) (Outcome, error) {
	switch f := strings.ToLower(strings.TrimSpace(filter)); f {
	case FilterAll, FilterComplete, FilterPending:
		w.filter = f
		return Outcome{}, nil
	case "":
		w.filter = FilterAll
		return Outcome{}, nil
	}
	return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownFilter, filter)
}

func (w *closeIrradiation) submitEnabled() bool {
	if w.pending != nil || w.phase() != PhaseScanning || w.batchID == 0 || w.acc.Count() == 0 {
		return false
	}
	for _, item := range w.acc.Items() {
		if !item.Disabled && !item.Inspected {
			return false
		}
	}
	return true
}

// Submit completes the batch with the inspected products.
func (w *closeIrradiation) Submit(ctx context.Context) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	if !w.submitEnabled() {
		return Outcome{}, ErrSubmitDisabled
	}

	var items []batch.Item
	req := client.CompleteBatchRequest{
		BatchID: w.batchID,
		EndTime: w.deps.Now().Format(timestampLayout),
	}
	for _, item := range w.acc.Items() {
		if item.Disabled {
			continue
		}
		items = append(items, item)
		req.BatchItems = append(req.BatchItems, client.CompleteBatchItem{
			UnitNumber:   item.UnitNumber,
			ProductCode:  item.ProductCode,
			IsIrradiated: item.Irradiated,
		})
	}

	return w.submit(ctx, submission{
		operation: "completeBatch",
		reference: w.Reference(),
		items:     items,
		send: func(ctx context.Context) (*client.RuleResponse, error) {
			return w.deps.Irradiation.CompleteBatch(ctx, req)
		},
		successMessage: MessageBatchCompleted,
		failureMessage: MessageCompleteFailed,
		redirect:       PathIrradiation,
		onSuccess:      w.acc.Reset,
	})
}

// Cancel leaves the batch open after confirmation.
func (w *closeIrradiation) Cancel(context.Context) (Outcome, error) {
	if err := w.guard(); err != nil {
		return Outcome{}, err
	}
	leave := func(context.Context) (Outcome, error) {
		w.reset()
		return Outcome{Redirect: PathIrradiation}, nil
	}
	if w.acc.Count() == 0 {
		return leave(context.Background())
	}
	return w.ask(Confirmation{Message: MessageCancelIrradiation}, w.phase(), leave, nil)
}

func (w *closeIrradiation) View() View {
	v := w.baseView()
	v.DeviceID = w.deviceID
	v.BatchID = w.batchID
	v.Filter = w.filter
	v.UnitInputEnabled = w.batchID != 0 && w.pending == nil && w.phase() != PhaseDone
	v.SubmitEnabled = w.submitEnabled()

	if w.filter != FilterAll {
		filtered := v.Items[:0]
		for _, item := range v.Items {
			if (w.filter == FilterComplete) == item.Inspected {
				filtered = append(filtered, item)
			}
		}
		v.Items = filtered
	}
	return v
}
