package statistics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/internal/pkg/cache"
	"github.com/HexGuardSec/HexGuard/internal/pkg/database"
)

const (
	CacheKeyScansTotal   = "statistics:scans:total"
	CacheKeyScansDaily   = "statistics:scans:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyIssuesFound  = "statistics:scans:issues"
	CacheKeyScansSecured = "statistics:scans:secured"
	CacheKeyUsers        = "statistics:users:total"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on the public landing page
type StatisticsData struct {
	TodayScans     int
	TotalScans     int
	IssuesDetected int
	ScansSecured   int
	TotalUsers     int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cached aggregates are stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached aggregates when stale
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Errorf("[Statistics] Failed to refresh statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces a refresh on the next read
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all aggregates and stores them in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalScans int64
	if err := db.Model(&models.Scan{}).Count(&totalScans).Error; err != nil {
		return err
	}

	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	var todayScans int64
	if err := db.Model(&models.Scan{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayScans).Error; err != nil {
		return err
	}

	var issuesDetected int64
	if err := db.Model(&models.Scan{}).Where("status = ?", models.ScanStatusIssues).Count(&issuesDetected).Error; err != nil {
		return err
	}

	var scansSecured int64
	if err := db.Model(&models.Scan{}).Where("status = ?", models.ScanStatusNoIssues).Count(&scansSecured).Error; err != nil {
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	if err := cache.Set(CacheKeyScansTotal, strconv.FormatInt(totalScans, 10), CacheExpiration); err != nil {
		return err
	}
	dailyKey := fmt.Sprintf(CacheKeyScansDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayScans, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyIssuesFound, strconv.FormatInt(issuesDetected, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyScansSecured, strconv.FormatInt(scansSecured, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}

	log.Debugf("[Statistics] Cache refreshed: scans=%d today=%d issues=%d secured=%d users=%d",
		totalScans, todayScans, issuesDetected, scansSecured, totalUsers)

	return nil
}

// cachedCount reads a cached counter, falling back to the database query
func cachedCount(cacheKey string, query func() (int64, error)) int {
	val, err := cache.Get(cacheKey)
	if err == nil {
		count, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return 0
		}
		return int(count)
	}

	count, err := query()
	if err != nil {
		log.Errorf("[Statistics] Count query for %s failed: %v", cacheKey, err)
		return 0
	}
	if err := cache.Set(cacheKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Errorf("[Statistics] Failed to cache %s: %v", cacheKey, err)
	}
	return int(count)
}

// GetTotalScans returns the total number of scans from cache or database
func GetTotalScans() int {
	return cachedCount(CacheKeyScansTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Scan{}).Count(&count).Error
		return count, err
	})
}

// GetTodayScans returns the number of scans submitted today from cache or database
func GetTodayScans() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyScansDaily, today)

	return cachedCount(dailyKey, func() (int64, error) {
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)
		var count int64
		err := database.GetDB().Model(&models.Scan{}).
			Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error
		return count, err
	})
}

// GetIssuesDetected returns the number of scans that surfaced issues
func GetIssuesDetected() int {
	return cachedCount(CacheKeyIssuesFound, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Scan{}).Where("status = ?", models.ScanStatusIssues).Count(&count).Error
		return count, err
	})
}

// GetScansSecured returns the number of scans that completed clean
func GetScansSecured() int {
	return cachedCount(CacheKeyScansSecured, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Scan{}).Where("status = ?", models.ScanStatusNoIssues).Count(&count).Error
		return count, err
	})
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	return cachedCount(CacheKeyUsers, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.User{}).Count(&count).Error
		return count, err
	})
}

// GetStatisticsData returns all aggregates, refreshing the cache when stale
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayScans:     GetTodayScans(),
		TotalScans:     GetTotalScans(),
		IssuesDetected: GetIssuesDetected(),
		ScansSecured:   GetScansSecured(),
		TotalUsers:     GetTotalUsers(),
	}
}
