package service

import (
	"context"
	"errors"

	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultImportConcurrency bounds the check digit calls of one import.
const DefaultImportConcurrency = 4

// PreparedRow is an import row after local normalization and check digit verification.
type PreparedRow struct {
	Row   scan.ImportRow
	Input ScanInput
	// Reason is set when the row was rejected before reaching the workflow.
	Reason string
}

// PrepareRows normalizes rows and verifies their check digits concurrently.
// Results keep the order of rows. Only context cancellation is returned as an error.
func PrepareRows(ctx context.Context, kind Kind, rows []scan.ImportRow, normalizer *scan.Normalizer, inventory client.InventoryClient, concurrency int) ([]PreparedRow, error) {
	if concurrency <= 0 {
		concurrency = DefaultImportConcurrency
	}
	prepared := make([]PreparedRow, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			prepared[i] = prepareRow(gctx, kind, row, normalizer, inventory)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prepared, nil
}

func prepareRow(ctx context.Context, kind Kind, row scan.ImportRow, normalizer *scan.Normalizer, inventory client.InventoryClient) PreparedRow {
	p := PreparedRow{Row: row}
	event, err := normalizer.UnitNumber(row.UnitNumber, row.CheckDigit)
	if err != nil {
		p.Reason = reasonOf(err)
		return p
	}
	if row.ProductCode != "" {
		if _, err := normalizer.ProductCode(row.ProductCode); err != nil {
			p.Reason = reasonOf(err)
			return p
		}
	}
	if event.CheckDigit != "" {
		valid, err := inventory.VerifyCheckDigit(ctx, event.UnitNumber, event.CheckDigit)
		switch {
		case err != nil:
			utils.Logger.Warn("Import check digit verification failed",
				zap.Int("line", row.Line),
				zap.String(utils.FieldUnitNumber, event.UnitNumber),
				zap.Error(err))
			p.Reason = MessageCheckDigitFailed
			return p
		case !valid:
			p.Reason = scan.MessageCheckDigitInvalid
			return p
		}
	}

	p.Input = ScanInput{
		Field:              scan.FieldUnitNumber,
		Value:              row.UnitNumber,
		CheckDigit:         row.CheckDigit,
		CheckDigitVerified: true,
	}
	if kind == KindShipmentVerification {
		p.Input.ProductCode = row.ProductCode
	}
	return p
}

func reasonOf(err error) string {
	var ie *scan.InputError
	if errors.As(err, &ie) {
		return ie.Message
	}
	return err.Error()
}

// RowStatus is what happened to an imported row.
type RowStatus int

const (
	RowAccepted RowStatus = iota
	RowFailed
	// RowStopped means the workflow asked the operator something and the import cannot go on.
	RowStopped
)

// ApplyRow feeds a prepared row to w. Warnings do not fail a row.
func ApplyRow(ctx context.Context, w Workflow, p PreparedRow) (RowStatus, string) {
	if p.Reason != "" {
		return RowFailed, p.Reason
	}
	out, err := w.Input(ctx, p.Input)
	if err != nil {
		return statusOfError(err)
	}
	if len(out.Choices) > 0 && p.Row.ProductCode != "" && w.Kind() == KindStartIrradiation {
		out, err = w.Select(ctx, p.Row.ProductCode)
		if err != nil {
			if errors.Is(err, ErrUnknownChoice) {
				return RowFailed, "Product code is not available for this unit"
			}
			return statusOfError(err)
		}
	}
	if message, failed := out.Failed(); failed {
		return RowFailed, message
	}
	if out.Blocked() {
		return RowStopped, "Operator input required"
	}
	return RowAccepted, ""
}

func statusOfError(err error) (RowStatus, string) {
	switch {
	case errors.Is(err, ErrConfirmationPending), errors.Is(err, ErrFieldLocked), errors.Is(err, ErrInvalidTransition):
		return RowStopped, err.Error()
	}
	return RowFailed, err.Error()
}
