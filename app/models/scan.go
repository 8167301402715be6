package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Scan input kinds accepted by the submission endpoint.
const (
	ScanInputAddress = "ADDRESS"
	ScanInputCode    = "CODE"
	ScanInputFiles   = "FILES"
	ScanInputGitHub  = "GITHUB"
)

// Scan lifecycle statuses. Processing/Queued/Under Review are pending; the
// other three are terminal and must never be overwritten.
const (
	ScanStatusProcessing  = "Processing"
	ScanStatusQueued      = "Queued"
	ScanStatusUnderReview = "Under Review"
	ScanStatusIssues      = "Issues Detected"
	ScanStatusNoIssues    = "No Issues Detected"
	ScanStatusFailed      = "Failed"
)

// Visibility values for community listing.
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

// Severity buckets derived from the analysis score.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

// Finding is a single reported issue inside a scan result.
type Finding struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// ScannedFile is one uploaded source file in a FILES scan.
type ScannedFile struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

// JSONList stores a slice as a JSON column (MySQL longtext).
type JSONList[T any] []T

func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *JSONList[T]) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported JSON column type")
	}
}

// Scan is one submitted analysis job and its lifecycle state/result.
type Scan struct {
	ID              uint                  `gorm:"primaryKey" json:"-"`
	UUID            string                `gorm:"type:char(36);uniqueIndex" json:"id" validate:"required,uuid4"`
	UserID          uint                  `gorm:"not null;index" json:"user_id"`
	Title           string                `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	InputKind       string                `gorm:"type:varchar(16);not null" json:"input_kind" validate:"oneof=ADDRESS CODE FILES GITHUB"`
	ContractAddress string                `gorm:"type:varchar(200);default:''" json:"contract_address"`
	SourceCode      string                `gorm:"type:longtext" json:"source_code,omitempty"`
	ScannedFiles    JSONList[ScannedFile] `gorm:"type:longtext" json:"scanned_files,omitempty"`
	Network         string                `gorm:"type:varchar(20);default:'SOLANA';index" json:"network"`
	Visibility      string                `gorm:"type:varchar(10);not null;default:'PUBLIC';index" json:"visibility" validate:"oneof=PUBLIC PRIVATE"`
	Status          string                `gorm:"type:varchar(32);not null;default:'Processing';index" json:"status"`
	Score           int                   `gorm:"default:0" json:"score"`
	Severity        string                `gorm:"type:varchar(10);default:'Low'" json:"severity"`
	Summary         string                `gorm:"type:text" json:"analysis_summary"`
	Findings        JSONList[Finding]     `gorm:"type:longtext" json:"vulnerabilities"`
	Language        string                `gorm:"type:varchar(32);default:'Unknown'" json:"language"`
	Tags            JSONList[string]      `gorm:"type:longtext" json:"tags"`
	ShareLink       string                `gorm:"type:varchar(16);uniqueIndex" json:"share_link"`
	LikeCount       int64                 `gorm:"default:0" json:"like_count"`
	ViewCount       int64                 `gorm:"default:0" json:"view_count"`
	CreatedAt       time.Time             `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt        `gorm:"index" json:"-"`
}

// PendingStatuses are the non-terminal statuses a scan may hold between
// submission and the job runner's terminal write.
func PendingStatuses() []string {
	return []string{ScanStatusProcessing, ScanStatusQueued, ScanStatusUnderReview}
}

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status string) bool {
	switch status {
	case ScanStatusIssues, ScanStatusNoIssues, ScanStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the scan has reached a terminal status.
func (s *Scan) IsTerminal() bool {
	return IsTerminalStatus(s.Status)
}

// FindScanByUUID loads a scan by its public identifier.
func FindScanByUUID(db *gorm.DB, uuid string) (*Scan, error) {
	var scan Scan
	if err := db.Where("uuid = ?", uuid).First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}
