package server

import (
	"context"
	"sync"

	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportManager runs bulk unit imports into sessions in the background.
type ImportManager struct {
	jobStore    *config.JobStore
	inventory   client.InventoryClient
	rules       func(workflow string) scan.Rules
	concurrency int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewImportManager constructs an ImportManager with the required dependencies.
func NewImportManager(jobStore *config.JobStore, inventory client.InventoryClient, rules func(workflow string) scan.Rules, concurrency int) *ImportManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &ImportManager{
		jobStore:    jobStore,
		inventory:   inventory,
		rules:       rules,
		concurrency: concurrency,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ProcessImportAsync creates a job and feeds rows to the session in the background.
// Rows are checked concurrently and applied in file order.
func (im *ImportManager) ProcessImportAsync(session *service.Session, source string, rows []scan.ImportRow) string {
	jobID := uuid.New().String()
	im.jobStore.CreateJob(jobID, session.ID, source, len(rows))

	utils.Logger.Debug("Queued import",
		zap.String(utils.FieldJobID, jobID),
		zap.String(utils.FieldSessionID, session.ID),
		zap.String("source", source),
		zap.Int("rows", len(rows)))

	im.wg.Add(1)
	go func() {
		defer im.wg.Done()
		im.run(jobID, session, rows)
	}()
	return jobID
}

func (im *ImportManager) run(jobID string, session *service.Session, rows []scan.ImportRow) {
	tracker := service.NewJobProgressTracker(im.jobStore, jobID)
	tracker.SetProcessing()

	var rules scan.Rules
	if im.rules != nil {
		rules = im.rules(string(session.Kind))
	} else {
		rules = scan.DefaultRules()
	}
	normalizer, err := scan.NewNormalizer(rules)
	if err != nil {
		tracker.MarkFailed(len(rows), err.Error())
		return
	}

	prepared, err := service.PrepareRows(im.ctx, session.Kind, rows, normalizer, im.inventory, im.concurrency)
	if err != nil {
		tracker.MarkFailed(len(rows), err.Error())
		return
	}

	successful := 0
	failures := make([]config.FailedRow, 0)
	notProcessed := 0
	for i, p := range prepared {
		if im.ctx.Err() != nil {
			notProcessed = len(prepared) - i
			break
		}

		var status service.RowStatus
		var reason string
		_ = session.Do(func(w service.Workflow) error {
			status, reason = service.ApplyRow(im.ctx, w, p)
			return nil
		})

		if status == service.RowAccepted {
			successful++
			continue
		}
		failures = append(failures, config.FailedRow{
			Line:        p.Row.Line,
			UnitNumber:  p.Row.UnitNumber,
			ProductCode: p.Row.ProductCode,
			Reason:      reason,
		})
		if status == service.RowStopped {
			notProcessed = len(prepared) - i - 1
			utils.Logger.Info("Import stopped for operator input",
				zap.String(utils.FieldJobID, jobID),
				zap.Int("line", p.Row.Line))
			break
		}
	}

	tracker.Finalize(successful, len(failures), notProcessed, len(rows), failures)
}

// Close cancels running imports and waits for them to finish.
func (im *ImportManager) Close() {
	im.cancel()
	im.wg.Wait()
}

// Wait blocks until every queued import has finished.
func (im *ImportManager) Wait() {
	im.wg.Wait()
}
