package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/internal/pkg/cache"
	"github.com/HexGuardSec/HexGuard/internal/pkg/database"
)

// Cache key and channel formats for scan lifecycle state
const (
	ScanStatusKeyFormat          = "scan:status:%s"           // Format: scan:status:<uuid>
	ScanStatusTimestampKeyFormat = "scan:status:timestamp:%s" // Format: scan:status:timestamp:<uuid>
	ScanEventChannelFormat       = "scan:events:%s"           // Format: scan:events:<uuid>
)

// statusTTL bounds how long cached status entries outlive their scan.
const statusTTL = 24 * time.Hour

// TerminalEvent is the message published when a scan reaches a terminal
// status. Exactly one event is published per scan: only the runner that won
// the guarded DB write publishes.
type TerminalEvent struct {
	ScanUUID string `json:"scan_uuid"`
	Status   string `json:"status"`
	Score    int    `json:"score"`
	At       string `json:"at"`
}

// SetScanStatus caches the current lifecycle status of a scan
func SetScanStatus(scanUUID string, status string) error {
	key := fmt.Sprintf(ScanStatusKeyFormat, scanUUID)
	SetScanStatusTimestamp(scanUUID, time.Now())
	return cache.Set(key, status, statusTTL)
}

// SetScanStatusTimestamp sets the timestamp when the status was set
func SetScanStatusTimestamp(scanUUID string, timestamp time.Time) error {
	cacheKey := fmt.Sprintf(ScanStatusTimestampKeyFormat, scanUUID)
	return cache.Set(cacheKey, timestamp.Format(time.RFC3339), statusTTL)
}

// GetScanStatus retrieves the cached lifecycle status of a scan
func GetScanStatus(scanUUID string) (string, error) {
	key := fmt.Sprintf(ScanStatusKeyFormat, scanUUID)
	return cache.Get(key)
}

// GetScanStatusTimestamp gets the timestamp when the status was set
func GetScanStatusTimestamp(scanUUID string) (time.Time, error) {
	cacheKey := fmt.Sprintf(ScanStatusTimestampKeyFormat, scanUUID)
	timestampStr, err := cache.Get(cacheKey)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, timestampStr)
}

// PublishTerminalEvent announces a finalized scan on its event channel and
// refreshes the status cache. Callers invoke this only after the guarded DB
// write reported that it performed the transition.
func PublishTerminalEvent(scanUUID string, status string, score int) error {
	if err := SetScanStatus(scanUUID, status); err != nil {
		return err
	}

	event := TerminalEvent{
		ScanUUID: scanUUID,
		Status:   status,
		Score:    score,
		At:       time.Now().Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := fmt.Sprintf(ScanEventChannelFormat, scanUUID)
	return cache.GetClient().Publish(context.Background(), channel, payload).Err()
}

// IsScanFinished checks whether a scan has reached a terminal status. The
// cache answers first; on a miss the database row decides and the cache is
// refreshed.
func IsScanFinished(scanUUID string) bool {
	status, err := GetScanStatus(scanUUID)
	if err == nil && models.IsTerminalStatus(status) {
		return true
	}

	db := database.GetDB()
	if db == nil {
		return false
	}
	scan, err := models.FindScanByUUID(db, scanUUID)
	if err != nil {
		return false
	}
	if scan.IsTerminal() {
		SetScanStatus(scanUUID, scan.Status)
		return true
	}
	return false
}
