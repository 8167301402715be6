package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scanRepository implements the ScanRepository interface
type scanRepository struct {
	db *gorm.DB
}

// NewScanRepository creates a new scan repository instance
func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepository{db: db}
}

// Create creates a new scan in the database
func (r *scanRepository) Create(scan *models.Scan) error {
	return r.db.Create(scan).Error
}

// GetByID retrieves a scan by its numeric ID
func (r *scanRepository) GetByID(id uint) (*models.Scan, error) {
	var scan models.Scan
	if err := r.db.First(&scan, id).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// GetByUUID retrieves a scan by its public identifier
func (r *scanRepository) GetByUUID(uuid string) (*models.Scan, error) {
	var scan models.Scan
	if err := r.db.Where("uuid = ?", uuid).First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// GetByShareLink retrieves a scan by its share link
func (r *scanRepository) GetByShareLink(shareLink string) (*models.Scan, error) {
	var scan models.Scan
	if err := r.db.Where("share_link = ?", shareLink).First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// GetByUserID retrieves a paginated list of the user's scans
func (r *scanRepository) GetByUserID(userID uint, offset, limit int) ([]models.Scan, error) {
	var scans []models.Scan
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&scans).Error
	return scans, err
}

// Update persists the scan
func (r *scanRepository) Update(scan *models.Scan) error {
	return r.db.Save(scan).Error
}

// Delete soft deletes a scan by its ID
func (r *scanRepository) Delete(id uint) error {
	return r.db.Delete(&models.Scan{}, id).Error
}

// Count returns the total number of scans
func (r *scanRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Scan{}).Count(&count).Error
	return count, err
}

// CountByUserID returns the number of scans owned by a user
func (r *scanRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Scan{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of scans in the given status
func (r *scanRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Scan{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// GetPublicScans retrieves publicly visible scans for the community feed
func (r *scanRepository) GetPublicScans(offset, limit int) ([]models.Scan, error) {
	var scans []models.Scan
	err := r.db.Where("visibility = ?", models.VisibilityPublic).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&scans).Error
	return scans, err
}

// GetRecentScans retrieves the most recently finished public scans
func (r *scanRepository) GetRecentScans(limit int) ([]models.Scan, error) {
	var scans []models.Scan
	err := r.db.Where("visibility = ? AND status IN ?", models.VisibilityPublic,
		[]string{models.ScanStatusIssues, models.ScanStatusNoIssues}).
		Order("created_at DESC").Limit(limit).Find(&scans).Error
	return scans, err
}

// SearchPublic searches public scans by title or contract address
func (r *scanRepository) SearchPublic(query string) ([]models.Scan, error) {
	var scans []models.Scan
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("visibility = ?", models.VisibilityPublic).
		Where("title LIKE ? OR contract_address LIKE ?", searchPattern, searchPattern).
		Order("created_at DESC").Limit(50).Find(&scans).Error
	return scans, err
}

// UpdatePendingStatus moves a scan between non-terminal statuses. The status
// predicate keeps it from resurrecting a finalized scan.
func (r *scanRepository) UpdatePendingStatus(uuid string, status string) error {
	if models.IsTerminalStatus(status) {
		return fmt.Errorf("status %q is terminal, use WriteTerminalResult", status)
	}
	return r.db.Model(&models.Scan{}).
		Where("uuid = ? AND status IN ?", uuid, models.PendingStatuses()).
		Update("status", status).Error
}

// WriteTerminalResult finalizes a scan with one guarded UPDATE. The pending
// status predicate gives first writer wins semantics: a retried or duplicate
// job matches zero rows and reports didWrite=false.
func (r *scanRepository) WriteTerminalResult(uuid string, result *models.Scan) (bool, error) {
	if !models.IsTerminalStatus(result.Status) {
		return false, fmt.Errorf("status %q is not terminal", result.Status)
	}
	res := r.db.Model(&models.Scan{}).
		Where("uuid = ? AND status IN ?", uuid, models.PendingStatuses()).
		Updates(map[string]interface{}{
			"status":   result.Status,
			"score":    result.Score,
			"severity": result.Severity,
			"summary":  result.Summary,
			"findings": result.Findings,
			"language": result.Language,
			"tags":     result.Tags,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateViewCount increments the view count for a scan
func (r *scanRepository) UpdateViewCount(id uint) error {
	return r.db.Model(&models.Scan{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// AddLike records a like, idempotent per user and scan. The like counter on
// the scan only moves when a new row was actually inserted.
func (r *scanRepository) AddLike(userID, scanID uint) (bool, error) {
	like := models.ScanLike{UserID: userID, ScanID: scanID}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := r.db.Model(&models.Scan{}).Where("id = ?", scanID).
		UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	return true, err
}

// RemoveLike removes a like if present
func (r *scanRepository) RemoveLike(userID, scanID uint) (bool, error) {
	res := r.db.Where("user_id = ? AND scan_id = ?", userID, scanID).Delete(&models.ScanLike{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := r.db.Model(&models.Scan{}).Where("id = ? AND like_count > 0", scanID).
		UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
	return true, err
}

// HasLiked reports whether the user already liked the scan
func (r *scanRepository) HasLiked(userID, scanID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ScanLike{}).
		Where("user_id = ? AND scan_id = ?", userID, scanID).Count(&count).Error
	return count > 0, err
}

// GetDailyStats returns daily scan submission statistics for a date range
func (r *scanRepository) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	var results []struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}

	err := r.db.Model(&models.Scan{}).
		Select("DATE_FORMAT(created_at, '%Y-%m-%d') as date, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE_FORMAT(created_at, '%Y-%m-%d')").
		Order("date").
		Find(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get daily scan stats: %w", err)
	}

	dailyStats := make([]models.DailyStats, len(results))
	for i, result := range results {
		dailyStats[i] = models.DailyStats{
			Date:  result.Date,
			Count: int(result.Count),
		}
	}

	return dailyStats, nil
}
