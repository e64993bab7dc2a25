package service

import (
	"fmt"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
)

// JobProgressTracker manages import job progress tracking and updates.
type JobProgressTracker struct {
	jobStore *config.JobStore
	jobID    string
}

// NewJobProgressTracker creates a new job progress tracker.
func NewJobProgressTracker(jobStore *config.JobStore, jobID string) *JobProgressTracker {
	return &JobProgressTracker{
		jobStore: jobStore,
		jobID:    jobID,
	}
}

// SetProcessing marks the job as processing.
func (jpt *JobProgressTracker) SetProcessing() {
	_ = jpt.jobStore.UpdateJob(jpt.jobID, func(job *config.Job) {
		job.Status = config.JobStatusProcessing
		job.Message = "Processing rows"
	})
}

// Finalize marks a job as completed or failed with appropriate status and message.
func (jpt *JobProgressTracker) Finalize(successful, failed, notProcessed, total int, failures []config.FailedRow) {
	_ = jpt.jobStore.UpdateJob(jpt.jobID, func(job *config.Job) {
		job.SuccessfulRows = successful
		job.FailedRows = failed
		job.NotProcessedRows = notProcessed
		job.Failures = failures

		switch {
		case failed == 0 && notProcessed == 0:
			job.Status = config.JobStatusCompleted
			job.Message = fmt.Sprintf("Successfully imported all %d rows", successful)
		case successful == 0:
			job.Status = config.JobStatusFailed
			job.Message = fmt.Sprintf("No rows imported: %d failed, %d not processed", failed, notProcessed)
		default:
			job.Status = config.JobStatusCompleted
			job.Message = fmt.Sprintf("Imported %d of %d rows with %d errors and %d not processed", successful, total, failed, notProcessed)
		}
	})

	utils.Logger.Info("Job finalized",
		zap.String(utils.FieldJobID, jpt.jobID),
		zap.Int("successful", successful),
		zap.Int("failed", failed),
		zap.Int("not_processed", notProcessed),
		zap.Int("total", total))
}

// MarkFailed marks a job as failed before any row was applied.
func (jpt *JobProgressTracker) MarkFailed(totalRows int, reason string) {
	_ = jpt.jobStore.UpdateJob(jpt.jobID, func(job *config.Job) {
		job.Status = config.JobStatusFailed
		job.TotalRows = totalRows
		job.FailedRows = 0
		job.NotProcessedRows = totalRows
		job.Message = reason
	})

	utils.Logger.Info("Job marked as failed",
		zap.String(utils.FieldJobID, jpt.jobID),
		zap.Int("total_rows", totalRows),
		zap.String("reason", reason))
}
