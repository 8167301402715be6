package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HexGuardSec/HexGuard/app/repository"
	"github.com/HexGuardSec/HexGuard/internal/pkg/statistics"
)

// HandlePlatformStats returns the public landing page aggregates plus the
// most recent completed community scans.
func HandlePlatformStats(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData()

	resp := fiber.Map{
		"scans_total":     data.TotalScans,
		"scans_today":     data.TodayScans,
		"issues_detected": data.IssuesDetected,
		"scans_secured":   data.ScansSecured,
		"users_total":     data.TotalUsers,
	}

	recent, err := repository.GetGlobalRepositories().Scan.GetRecentScans(6)
	if err == nil {
		items := make([]fiber.Map, 0, len(recent))
		for i := range recent {
			items = append(items, scanSummary(&recent[i]))
		}
		resp["recent_scans"] = items
	}

	return c.JSON(resp)
}
