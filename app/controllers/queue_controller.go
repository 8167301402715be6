package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/HexGuardSec/HexGuard/app/repository"
	"github.com/HexGuardSec/HexGuard/internal/pkg/jobqueue"
)

// Redis key patterns the queue monitor is allowed to touch.
var queueKeyPatterns = []string{"job:*", "job_queue", "job_processing", "job_stats", "scan:status:*"}

// HandleAdminQueueStats reports job counts and queue depths.
func HandleAdminQueueStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load job stats")
	}
	pending, _ := queue.GetQueueSize(ctx)
	processing, _ := queue.GetProcessingSize(ctx)

	return c.JSON(fiber.Map{
		"stats":           stats,
		"pending_size":    pending,
		"processing_size": processing,
		"worker_running":  jobqueue.GetManager().IsRunning(),
	})
}

// HandleAdminQueueKeys lists queue-related Redis keys with TTLs.
func HandleAdminQueueKeys(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetQueueRepository()

	keys, err := repo.FindKeysByPatterns(queueKeyPatterns)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not list queue keys")
	}

	items := make([]fiber.Map, 0, len(keys))
	for _, key := range keys {
		item := fiber.Map{"key": key}
		if ttl, err := repo.GetTTL(key); err == nil {
			item["ttl_seconds"] = int64(ttl.Seconds())
		}
		if strings.HasPrefix(key, "job_") {
			if length, err := repo.GetListLength(key); err == nil {
				item["length"] = length
			}
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"keys": items, "count": len(items)})
}

// HandleAdminQueueKeyDelete removes a single queue key.
func HandleAdminQueueKeyDelete(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Key missing")
	}
	if !isAllowedQueueKey(key) {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Key is outside the queue namespace")
	}

	deleted, err := repository.GetGlobalFactory().GetQueueRepository().DeleteKey(key)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not delete key")
	}

	return c.JSON(fiber.Map{"ok": true, "deleted": deleted})
}

// HandleAdminQueueBulkDelete removes all dead job keys matching the allowed
// patterns.
func HandleAdminQueueBulkDelete(c *fiber.Ctx) error {
	var body struct {
		Keys []string `json:"keys"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Keys) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Keys missing")
	}

	allowed := make([]string, 0, len(body.Keys))
	for _, key := range body.Keys {
		if isAllowedQueueKey(key) {
			allowed = append(allowed, key)
		}
	}
	if len(allowed) == 0 {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "No deletable keys in request")
	}

	deleted, err := repository.GetGlobalFactory().GetQueueRepository().DeleteKeys(allowed)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not delete keys")
	}

	return c.JSON(fiber.Map{"ok": true, "deleted": deleted})
}

func isAllowedQueueKey(key string) bool {
	if key == "job_queue" || key == "job_processing" || key == "job_stats" {
		return true
	}
	return strings.HasPrefix(key, "job:") || strings.HasPrefix(key, "scan:status:")
}
