package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/app/repository"
	"github.com/HexGuardSec/HexGuard/internal/pkg/database"
	"github.com/HexGuardSec/HexGuard/internal/pkg/entitlements"
	"github.com/HexGuardSec/HexGuard/internal/pkg/usercontext"
	"github.com/HexGuardSec/HexGuard/internal/pkg/utils"
)

// HandleGetUserAccount returns account information for the authenticated user
// (API key or session).
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repos := repository.GetGlobalRepositories()
	account, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	profile, err := models.GetOrCreateProfile(database.GetDB(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load profile")
	}

	scanCount, err := repos.Scan.CountByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}

	plan := entitlements.Normalize(profile.Plan)
	avatar := account.AvatarURL
	if avatar == "" {
		avatar = utils.GetGravatarURL(account.Email, 80)
	}

	return c.JSON(fiber.Map{
		"id":                   account.ID,
		"username":             account.Name,
		"email":                account.Email,
		"status":               account.Status,
		"avatar_url":           avatar,
		"plan":                 profile.Plan,
		"credits":              profile.Credits,
		"subscription_status":  profile.SubscriptionStatus,
		"is_admin":             account.Role == models.ROLE_ADMIN,
		"created_at":           account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":        formatTimePtr(account.LastLoginAt),
		"api_key_prefix":       profile.APIKeyPrefix,
		"api_key_last_used_at": formatTimePtr(profile.APIKeyLastUsedAt),
		"stats": fiber.Map{
			"scans": fiber.Map{
				"count": scanCount,
			},
		},
		"limits": fiber.Map{
			"max_files_per_scan": entitlements.MaxFilesPerScan(plan),
			"private_scans":      entitlements.CanCreatePrivateScan(plan),
			"credit_packs":       entitlements.CanPurchaseCreditPack(plan),
		},
	})
}

// HandleUserAPIKeyGenerate issues a fresh API key. The raw key appears in
// this response only; afterwards only the hash exists.
func HandleUserAPIKeyGenerate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	repos := repository.GetGlobalRepositories()
	profile, err := repos.Profile.GetOrCreateByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load profile")
	}

	rawKey, err := profile.IssueAPIKey()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to generate API key")
	}
	if err := repos.Profile.Update(profile); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store API key")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":    rawKey,
		"prefix":     profile.APIKeyPrefix,
		"created_at": formatTimePtr(profile.APIKeyCreatedAt),
	})
}

// HandleUserAPIKeyRevoke invalidates the current API key.
func HandleUserAPIKeyRevoke(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	repos := repository.GetGlobalRepositories()
	profile, err := repos.Profile.GetOrCreateByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load profile")
	}

	if !profile.HasActiveAPIKey() {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No active API key")
	}

	profile.RevokeAPIKey()
	if err := repos.Profile.Update(profile); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to revoke API key")
	}

	return c.JSON(fiber.Map{"ok": true})
}
