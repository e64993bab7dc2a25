package service

import (
	"testing"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobProgressTracker_Finalize(t *testing.T) {
	tests := []struct {
		name                         string
		successful, failed, notProcd int
		status                       config.JobStatus
		message                      string
	}{
		{"all imported", 3, 0, 0, config.JobStatusCompleted, "Successfully imported all 3 rows"},
		{"partial", 2, 1, 0, config.JobStatusCompleted, "Imported 2 of 3 rows with 1 errors and 0 not processed"},
		{"stopped early", 1, 0, 2, config.JobStatusCompleted, "Imported 1 of 3 rows with 0 errors and 2 not processed"},
		{"nothing imported", 0, 2, 1, config.JobStatusFailed, "No rows imported: 2 failed, 1 not processed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := config.NewJobStore()
			store.CreateJob("job-1", "session-1", "units.csv", 3)
			tracker := NewJobProgressTracker(store, "job-1")
			tracker.SetProcessing()

			job, ok := store.GetJob("job-1")
			require.True(t, ok)
			assert.Equal(t, config.JobStatusProcessing, job.Status)

			failures := []config.FailedRow{{Line: 2, UnitNumber: testUnit, Reason: "Invalid check digit"}}
			tracker.Finalize(tt.successful, tt.failed, tt.notProcd, 3, failures)

			job, _ = store.GetJob("job-1")
			assert.Equal(t, tt.status, job.Status)
			assert.Equal(t, tt.message, job.Message)
			assert.Equal(t, tt.notProcd, job.NotProcessedRows)
			assert.Equal(t, failures, job.Failures)
		})
	}
}

func TestJobProgressTracker_MarkFailed(t *testing.T) {
	store := config.NewJobStore()
	store.CreateJob("job-1", "session-1", "units.csv", 0)

	NewJobProgressTracker(store, "job-1").MarkFailed(4, "session closed")

	job, _ := store.GetJob("job-1")
	assert.Equal(t, config.JobStatusFailed, job.Status)
	assert.Equal(t, 4, job.TotalRows)
	assert.Equal(t, 4, job.NotProcessedRows)
	assert.Equal(t, "session closed", job.Message)
}

func TestJobProgressTracker_UnknownJobIsIgnored(t *testing.T) {
	tracker := NewJobProgressTracker(config.NewJobStore(), "missing")
	assert.NotPanics(t, func() {
		tracker.SetProcessing()
		tracker.Finalize(1, 0, 0, 1, nil)
	})
}
