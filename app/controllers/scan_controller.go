package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/app/repository"
	"github.com/HexGuardSec/HexGuard/internal/pkg/entitlements"
	"github.com/HexGuardSec/HexGuard/internal/pkg/jobqueue"
	"github.com/HexGuardSec/HexGuard/internal/pkg/metrics/counter"
	"github.com/HexGuardSec/HexGuard/internal/pkg/scanner"
	"github.com/HexGuardSec/HexGuard/internal/pkg/shortener"
	"github.com/HexGuardSec/HexGuard/internal/pkg/usercontext"
)

const shareLinkLength = 8

type createScanRequest struct {
	Title           string               `json:"title"`
	InputKind       string               `json:"input_kind"`
	ContractAddress string               `json:"contract_address"`
	SourceCode      string               `json:"source_code"`
	Files           []models.ScannedFile `json:"files"`
	Network         string               `json:"network"`
	Visibility      string               `json:"visibility"`
}

// HandleScanCreate accepts a new submission, charges one credit, and queues
// the analysis job. The credit is the admission ticket: no decrement, no scan.
func HandleScanCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	var req createScanRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	req.InputKind = strings.ToUpper(strings.TrimSpace(req.InputKind))
	switch req.InputKind {
	case models.ScanInputAddress, models.ScanInputCode, models.ScanInputFiles, models.ScanInputGitHub:
	default:
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "input_kind must be ADDRESS, CODE, FILES or GITHUB")
	}

	if strings.TrimSpace(req.Title) == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "title is required")
	}

	plan := entitlements.Normalize(userCtx.Plan)

	visibility := strings.ToUpper(strings.TrimSpace(req.Visibility))
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "visibility must be PUBLIC or PRIVATE")
	}
	if visibility == models.VisibilityPrivate && !entitlements.CanCreatePrivateScan(plan) {
		return jsonError(c, fiber.StatusForbidden, "plan_required", "Private scans require a PRO plan")
	}

	switch req.InputKind {
	case models.ScanInputAddress:
		if strings.TrimSpace(req.ContractAddress) == "" {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "contract_address is required for ADDRESS scans")
		}
	case models.ScanInputCode, models.ScanInputGitHub:
		if strings.TrimSpace(req.SourceCode) == "" {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "source_code is required")
		}
		if len(req.SourceCode) > scanner.MaxContentSize {
			return jsonError(c, fiber.StatusRequestEntityTooLarge, "content_too_large", "Submitted source exceeds the analysis size limit")
		}
	case models.ScanInputFiles:
		if len(req.Files) == 0 {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "files are required for FILES scans")
		}
		if maxFiles := entitlements.MaxFilesPerScan(plan); len(req.Files) > maxFiles {
			return jsonError(c, fiber.StatusForbidden, "too_many_files", "File count exceeds your plan limit")
		}
		total := 0
		for i := range req.Files {
			req.Files[i].Size = int64(len(req.Files[i].Content))
			total += len(req.Files[i].Content)
		}
		if total > scanner.MaxContentSize {
			return jsonError(c, fiber.StatusRequestEntityTooLarge, "content_too_large", "Submitted files exceed the analysis size limit")
		}
	}

	network := strings.ToUpper(strings.TrimSpace(req.Network))
	if network == "" {
		network = "SOLANA"
	}

	repos := repository.GetGlobalRepositories()

	// Atomic decrement; the balance never goes below zero
	if err := repos.Profile.DecrementCreditIfAvailable(userCtx.UserID); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return jsonError(c, fiber.StatusPaymentRequired, "insufficient_credits", "No scan credits left")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not charge scan credit")
	}

	shareLink, err := shortener.GenerateSecureSlug(shareLinkLength)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not create share link")
	}

	scan := &models.Scan{
		UUID:            uuid.NewString(),
		UserID:          userCtx.UserID,
		Title:           strings.TrimSpace(req.Title),
		InputKind:       req.InputKind,
		ContractAddress: strings.TrimSpace(req.ContractAddress),
		SourceCode:      req.SourceCode,
		ScannedFiles:    req.Files,
		Network:         network,
		Visibility:      visibility,
		Status:          models.ScanStatusProcessing,
		ShareLink:       shareLink,
	}

	if err := repos.Scan.Create(scan); err != nil {
		log.Errorf("[Scan] Failed to persist scan for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not create scan")
	}

	if err := scanner.SetScanStatus(scan.UUID, models.ScanStatusProcessing); err != nil {
		log.Warnf("[Scan] Failed to cache status for scan %s: %v", scan.UUID, err)
	}

	queue := jobqueue.GetManager().GetQueue()
	payload := jobqueue.ScanAnalysisJobPayload{
		ScanID:    scan.ID,
		ScanUUID:  scan.UUID,
		InputKind: scan.InputKind,
		Network:   scan.Network,
	}
	if _, err := queue.EnqueueJob(jobqueue.JobTypeScanAnalysis, payload.ToMap()); err != nil {
		log.Errorf("[Scan] Failed to enqueue analysis for scan %s: %v", scan.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not queue scan")
	}

	if scan.InputKind == models.ScanInputFiles {
		bundlePayload := jobqueue.BundleUploadJobPayload{ScanID: scan.ID, ScanUUID: scan.UUID}
		if _, err := queue.EnqueueJob(jobqueue.JobTypeBundleUpload, bundlePayload.ToMap()); err != nil {
			log.Warnf("[Scan] Failed to enqueue bundle upload for scan %s: %v", scan.UUID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         scan.UUID,
		"share_link": scan.ShareLink,
		"status":     scan.Status,
		"visibility": scan.Visibility,
	})
}

// HandleScanGet returns one scan. Private scans are owner-only; views from
// other users count toward the public view counter.
func HandleScanGet(c *fiber.Ctx) error {
	scanUUID := c.Params("uuid")
	repos := repository.GetGlobalRepositories()

	scan, err := repos.Scan.GetByUUID(scanUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load scan")
	}

	userCtx := usercontext.GetUserContext(c)
	isOwner := userCtx.IsLoggedIn && userCtx.UserID == scan.UserID
	if scan.Visibility == models.VisibilityPrivate && !isOwner && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
	}

	if !isOwner {
		if err := counter.AddScanView(scan.ID); err != nil {
			log.Debugf("[Scan] View counter for scan %s failed: %v", scan.UUID, err)
		}
	}

	return c.JSON(scanResponse(scan, userCtx))
}

// HandleScanStatus reports the lifecycle status, cache-first.
func HandleScanStatus(c *fiber.Ctx) error {
	scanUUID := c.Params("uuid")

	status, err := scanner.GetScanStatus(scanUUID)
	if err != nil || status == "" {
		scan, dbErr := repository.GetGlobalRepositories().Scan.GetByUUID(scanUUID)
		if dbErr != nil {
			if errors.Is(dbErr, gorm.ErrRecordNotFound) {
				return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
			}
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load scan status")
		}
		status = scan.Status
		_ = scanner.SetScanStatus(scanUUID, status)
	}

	return c.JSON(fiber.Map{
		"id":       scanUUID,
		"status":   status,
		"finished": models.IsTerminalStatus(status),
	})
}

// HandleScanList returns the caller's scans, newest first.
func HandleScanList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 20)
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	repos := repository.GetGlobalRepositories()
	scans, err := repos.Scan.GetByUserID(userCtx.UserID, (page-1)*perPage, perPage)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load scans")
	}
	total, err := repos.Scan.CountByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not count scans")
	}

	items := make([]fiber.Map, 0, len(scans))
	for i := range scans {
		items = append(items, scanSummary(&scans[i]))
	}

	return c.JSON(fiber.Map{
		"scans":    items,
		"page":     page,
		"per_page": perPage,
		"total":    total,
	})
}

// HandlePublicScans lists completed public scans for the community feed.
func HandlePublicScans(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 20)
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	repos := repository.GetGlobalRepositories()

	if query := strings.TrimSpace(c.Query("q")); query != "" {
		scans, err := repos.Scan.SearchPublic(query)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Search failed")
		}
		items := make([]fiber.Map, 0, len(scans))
		for i := range scans {
			items = append(items, scanSummary(&scans[i]))
		}
		return c.JSON(fiber.Map{"scans": items, "query": query})
	}

	scans, err := repos.Scan.GetPublicScans((page-1)*perPage, perPage)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load public scans")
	}

	items := make([]fiber.Map, 0, len(scans))
	for i := range scans {
		items = append(items, scanSummary(&scans[i]))
	}

	return c.JSON(fiber.Map{
		"scans":    items,
		"page":     page,
		"per_page": perPage,
	})
}

// HandleScanDelete removes a scan owned by the caller. Spent credits are not
// refunded.
func HandleScanDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	repos := repository.GetGlobalRepositories()
	scan, err := repos.Scan.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load scan")
	}

	if scan.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Not your scan")
	}

	if err := repos.Scan.Delete(scan.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not delete scan")
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleShareLink resolves a short share slug to the scan report.
func HandleShareLink(c *fiber.Ctx) error {
	repos := repository.GetGlobalRepositories()
	scan, err := repos.Scan.GetByShareLink(c.Params("sharelink"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load scan")
	}

	userCtx := usercontext.GetUserContext(c)
	isOwner := userCtx.IsLoggedIn && userCtx.UserID == scan.UserID
	if scan.Visibility == models.VisibilityPrivate && !isOwner && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
	}

	if !isOwner {
		if err := counter.AddScanView(scan.ID); err != nil {
			log.Debugf("[Scan] View counter for scan %s failed: %v", scan.UUID, err)
		}
	}

	return c.JSON(scanResponse(scan, userCtx))
}

// HandleScanLike records one like per user per scan.
func HandleScanLike(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	repos := repository.GetGlobalRepositories()
	scan, err := repos.Scan.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load scan")
	}
	if scan.Visibility == models.VisibilityPrivate && scan.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
	}

	liked, err := repos.Scan.AddLike(userCtx.UserID, scan.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not record like")
	}

	return c.JSON(fiber.Map{"ok": true, "liked": true, "changed": liked})
}

// HandleScanUnlike removes the caller's like.
func HandleScanUnlike(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	repos := repository.GetGlobalRepositories()
	scan, err := repos.Scan.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Scan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load scan")
	}

	removed, err := repos.Scan.RemoveLike(userCtx.UserID, scan.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not remove like")
	}

	return c.JSON(fiber.Map{"ok": true, "liked": false, "changed": removed})
}

// scanSummary is the listing shape without source content.
func scanSummary(scan *models.Scan) fiber.Map {
	return fiber.Map{
		"id":         scan.UUID,
		"title":      scan.Title,
		"input_kind": scan.InputKind,
		"network":    scan.Network,
		"status":     scan.Status,
		"score":      scan.Score,
		"severity":   scan.Severity,
		"language":   scan.Language,
		"tags":       scan.Tags,
		"share_link": scan.ShareLink,
		"like_count": scan.LikeCount,
		"view_count": scan.ViewCount,
		"created_at": scan.CreatedAt.UTC(),
	}
}

// scanResponse is the full report shape; source content is owner-only.
func scanResponse(scan *models.Scan, userCtx usercontext.UserContext) fiber.Map {
	resp := scanSummary(scan)
	resp["visibility"] = scan.Visibility
	resp["analysis_summary"] = scan.Summary
	resp["vulnerabilities"] = scan.Findings
	resp["contract_address"] = scan.ContractAddress

	if userCtx.IsLoggedIn && (userCtx.UserID == scan.UserID || userCtx.IsAdmin) {
		resp["source_code"] = scan.SourceCode
		resp["scanned_files"] = scan.ScannedFiles
	}
	return resp
}
