package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanAnalysisJobPayloadRoundTrip(t *testing.T) {
	payload := ScanAnalysisJobPayload{
		ScanID:    42,
		ScanUUID:  "0d9f3a1e-8f6c-4c7b-9a2d-1f2e3d4c5b6a",
		InputKind: "CODE",
		Network:   "SOLANA",
	}

	restored, err := ScanAnalysisJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestJobRetryLifecycle(t *testing.T) {
	job := &Job{
		ID:         "j1",
		Type:       JobTypeScanAnalysis,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsFailed("boom again")
	job.MarkAsFailed("boom once more")
	assert.Equal(t, DefaultMaxRetries, job.RetryCount)
	assert.False(t, job.IsRetryable())
}

func TestJobMarkAsCompletedClearsError(t *testing.T) {
	job := &Job{ID: "j2", Status: JobStatusProcessing, ErrorMsg: "transient"}
	before := time.Now()

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
	assert.False(t, job.CompletedAt.Before(before))
}
