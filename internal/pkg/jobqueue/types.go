package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeScanAnalysis JobType = "scan_analysis"
	JobTypeBundleUpload JobType = "bundle_upload"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ScanAnalysisJobPayload contains the payload for scan analysis jobs
type ScanAnalysisJobPayload struct {
	ScanID    uint   `json:"scan_id"`
	ScanUUID  string `json:"scan_uuid"`
	InputKind string `json:"input_kind"`
	Network   string `json:"network"`
}

// ToMap converts the payload to a map for storage
func (p ScanAnalysisJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"scan_id":    p.ScanID,
		"scan_uuid":  p.ScanUUID,
		"input_kind": p.InputKind,
		"network":    p.Network,
	}
}

// FromMap creates a payload from a map
func ScanAnalysisJobPayloadFromMap(data map[string]interface{}) (*ScanAnalysisJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ScanAnalysisJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// BundleUploadJobPayload contains the payload for uploading a FILES bundle
// to object storage.
type BundleUploadJobPayload struct {
	ScanID   uint   `json:"scan_id"`
	ScanUUID string `json:"scan_uuid"`
}

// ToMap converts the payload to a map for storage
func (p BundleUploadJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"scan_id":   p.ScanID,
		"scan_uuid": p.ScanUUID,
	}
}

// FromMap creates a payload from a map
func BundleUploadJobPayloadFromMap(data map[string]interface{}) (*BundleUploadJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload BundleUploadJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
