package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/journal"
	"github.com/anmicius0/unit-batch-station/internal/notify"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
)

// Messages shown by every workflow.
const (
	MessageDuplicateScan    = "Duplicate scan ignored"
	MessageDuplicateProduct = "Product has already been added to the list"
	MessageSelectProduct    = "Select at least one product"
	MessageCheckDigitFailed = "Unable to verify check digit"
	MessageRemoveSelected   = "All changes will be removed without finishing the irradiation process. Are you sure you want to continue?"
	MessageDiscardFailed    = "Product has not been discarded in the system. Contact Support."
	TitleAcknowledgment     = "Acknowledgment Message"
	TitleConfirmation       = "Confirmation"
)

const (
	timestampLayout     = "2006-01-02T15:04:05"
	removedProductsForm = "%d product(s) removed from the list"
)

// station holds the state and behavior shared by every workflow.
type station struct {
	kind       Kind
	deps       Deps
	log        *zap.Logger
	acc        *batch.Accumulator
	machine    phaseMachine
	prompt     string
	normalizer *scan.Normalizer
	dedupe     *scan.Deduper
	pending    *pending
	choices    []Choice
}

func newStation(kind Kind, deps Deps) (*station, error) {
	normalizer, err := scan.NewNormalizer(deps.Rules)
	if err != nil {
		return nil, fmt.Errorf("scan rules for %s: %w", kind, err)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Recorder == nil {
		deps.Recorder = journal.Nop{}
	}
	return &station{
		kind: kind,
		deps: deps,
		log: utils.WithComponent("workflow").With(
			zap.String(utils.FieldWorkflow, string(kind)),
			zap.String(utils.FieldSessionID, deps.SessionID),
		),
		acc:        batch.New(),
		machine:    phaseMachine{current: PhaseSetup},
		normalizer: normalizer,
		dedupe:     scan.NewDeduper(deps.DedupeCooldown),
	}, nil
}

func (s *station) Kind() Kind { return s.kind }

func (s *station) phase() Phase { return s.machine.current }

func (s *station) to(next Phase) error {
	prev := s.machine.current
	if err := s.machine.to(next); err != nil {
		s.log.Warn("Rejected phase change", zap.String(utils.FieldPhase, string(prev)), zap.String("next", string(next)))
		return err
	}
	if prev != next {
		s.log.Debug("Phase changed", zap.String("from", string(prev)), zap.String(utils.FieldPhase, string(next)))
	}
	return nil
}

// restart returns a finished workflow to setup.
func (s *station) restart() {
	s.acc.Reset()
	s.choices = nil
	s.pending = nil
	s.machine.current = PhaseSetup
}

// guard rejects actions while a confirmation is pending.
func (s *station) guard() error {
	if s.pending != nil {
		return ErrConfirmationPending
	}
	return nil
}

// Select is only offered by workflows that present product choices.
func (s *station) Select(context.Context, string) (Outcome, error) {
	return Outcome{}, ErrUnsupported
}

func (s *station) Toggle(key batch.Key) (Outcome, error) {
	if err := s.guard(); err != nil {
		return Outcome{}, err
	}
	if !s.acc.Toggle(key) {
		return toast(notify.Warning(fmt.Sprintf("Product %s %s cannot be selected", key.UnitNumber, key.ProductCode)), ""), nil
	}
	return Outcome{}, nil
}

func (s *station) SelectAll() (Outcome, error) {
	if err := s.guard(); err != nil {
		return Outcome{}, err
	}
	s.acc.SelectAll()
	return Outcome{}, nil
}

// RemoveSelected asks for confirmation before dropping the selected items.
func (s *station) RemoveSelected() (Outcome, error) {
	if err := s.guard(); err != nil {
		return Outcome{}, err
	}
	if len(s.acc.Selected()) == 0 {
		return toast(notify.Warning(MessageSelectProduct), ""), nil
	}
	return s.ask(Confirmation{Title: TitleConfirmation, Message: MessageRemoveSelected}, s.phase(),
		func(context.Context) (Outcome, error) {
			removed := s.acc.RemoveSelected()
			s.log.Info("Removed selected products", zap.Int("count", len(removed)))
			return toast(notify.Info(fmt.Sprintf(removedProductsForm, len(removed))), scan.FieldUnitNumber), nil
		}, nil)
}

// checkUnit runs the local checks and the check digit verification of a unit scan.
// It returns false with the outcome to show when the scan must not go further.
func (s *station) checkUnit(ctx context.Context, in ScanInput) (scan.Event, Outcome, bool) {
	if strings.HasPrefix(strings.TrimSpace(in.Value), scan.UnitNumberPrefix) &&
		s.dedupe.Seen(in.Field+"|"+strings.TrimSpace(in.Value)+"|"+strings.TrimSpace(in.CheckDigit)) {
		return scan.Event{}, toast(notify.Warning(MessageDuplicateScan), scan.FieldUnitNumber), false
	}

	event, err := s.normalizer.UnitNumber(in.Value, in.CheckDigit)
	if err != nil {
		return scan.Event{}, inputFailure(err, scan.FieldUnitNumber), false
	}
	if event.CheckDigit == "" || in.CheckDigitVerified {
		return event, Outcome{}, true
	}

	valid, err := s.deps.Inventory.VerifyCheckDigit(ctx, event.UnitNumber, event.CheckDigit)
	if err != nil {
		s.log.Error("Check digit verification failed", zap.String(utils.FieldUnitNumber, event.UnitNumber), zap.Error(err))
		return scan.Event{}, toast(notify.Error(MessageCheckDigitFailed), scan.FieldUnitNumber), false
	}
	if !valid {
		return scan.Event{}, toast(notify.Error(scan.MessageCheckDigitInvalid), scan.FieldCheckDigit), false
	}
	return event, Outcome{}, true
}

func inputFailure(err error, field string) Outcome {
	var ie *scan.InputError
	if errors.As(err, &ie) {
		return toast(notify.Error(ie.Message), ie.Field)
	}
	return toast(notify.Error(err.Error()), field)
}

// discard asks the backend to discard a product. The outcome is the SYSTEM notice on failure.
func (s *station) discard(ctx context.Context, req DiscardRequest) (Outcome, bool) {
	res, err := s.deps.Inventory.Discard(ctx, req.toClient(s.deps))
	if err != nil || res == nil {
		s.log.Error("Discard failed",
			zap.String(utils.FieldUnitNumber, req.UnitNumber),
			zap.String(utils.FieldProductCode, req.ProductCode),
			zap.Error(err))
		return toast(notify.System(MessageDiscardFailed), scan.FieldUnitNumber), false
	}
	s.log.Info("Product discarded",
		zap.String(utils.FieldUnitNumber, req.UnitNumber),
		zap.String(utils.FieldProductCode, req.ProductCode),
		zap.String("reason", req.Reason))
	return Outcome{}, true
}

func (s *station) baseView() View {
	v := View{
		Kind:     s.kind,
		Phase:    s.phase(),
		Prompt:   s.prompt,
		Items:    s.acc.Items(),
		Selected: s.acc.Selected(),
		Count:    s.acc.Count(),
		Choices:  append([]Choice(nil), s.choices...),
	}
	if s.pending != nil {
		c := s.pending.Confirmation
		v.Confirmation = &c
	}
	return v
}
