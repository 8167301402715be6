package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/app/repository"
	"github.com/HexGuardSec/HexGuard/internal/pkg/billing"
	"github.com/HexGuardSec/HexGuard/internal/pkg/database"
	"github.com/HexGuardSec/HexGuard/internal/pkg/entitlements"
	"github.com/HexGuardSec/HexGuard/internal/pkg/env"
	"github.com/HexGuardSec/HexGuard/internal/pkg/session"
	"github.com/HexGuardSec/HexGuard/internal/pkg/usercontext"
)

// HandleLemonSqueezyWebhook ingests billing events. Replay protection comes
// from the event-id dedup in the billing service; a processing failure still
// answers 200 so the provider does not retry forever.
func HandleLemonSqueezyWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("LEMONSQUEEZY_WEBHOOK_SECRET", "")
	if secret == "" {
		log.Error("[Billing] LEMONSQUEEZY_WEBHOOK_SECRET is not configured")
		return jsonError(c, fiber.StatusInternalServerError, "webhook_not_configured", "Webhook secret missing")
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Signature"))
	if signature == "" || len(rawBody) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing signature or body")
	}

	if !billing.VerifyWebhookSignature(rawBody, signature, secret) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "Signature verification failed")
	}

	var payload billing.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		log.Warnf("[Billing] Webhook payload not parseable: %v", err)
		return c.JSON(fiber.Map{"ok": true, "outcome": string(billing.OutcomeMalformed)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	svc := billing.NewServiceFromDB(database.GetDB())
	outcome, err := svc.ProcessEvent(ctx, &payload)
	if err != nil {
		// Logged and acknowledged; the event record decides replays
		log.Errorf("[Billing] Processing event %s failed: %v", payload.Meta.EventID, err)
	}

	return c.JSON(fiber.Map{"ok": true, "outcome": string(outcome)})
}

type checkoutRequest struct {
	PlanType string `json:"plan_type"`
}

// HandleCheckoutCreate creates a hosted checkout for a credit pack or the
// PRO subscription.
func HandleCheckoutCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	planType := strings.ToUpper(strings.TrimSpace(req.PlanType))
	switch planType {
	case billing.PlanTypeCreditPack, billing.PlanTypeProMonthly:
	default:
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "plan_type must be CREDITS_50 or PRO_MONTHLY")
	}

	if planType == billing.PlanTypeCreditPack && !entitlements.CanPurchaseCreditPack(entitlements.Normalize(userCtx.Plan)) {
		return jsonError(c, fiber.StatusForbidden, "plan_required", "Credit packs are reserved for PRO subscribers")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load account")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client := billing.NewLemonSqueezyClientFromEnv()
	checkout, err := client.CreateCheckout(ctx, user.ID, user.Email, planType)
	if err != nil {
		log.Errorf("[Billing] Checkout creation for user %d failed: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "checkout_failed", "Could not create checkout")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"checkout_id":  checkout.CheckoutID,
		"checkout_url": checkout.CheckoutURL,
	})
}

// HandleBillingSubscription returns the caller's plan, credit balance, and
// live subscription details when one is linked.
func HandleBillingSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	profile, err := repository.GetGlobalRepositories().Profile.GetOrCreateByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load profile")
	}

	// Keep the session plan in sync after webhook-driven changes
	_ = session.SetSessionValue(c, "user_plan", profile.Plan)

	resp := fiber.Map{
		"plan":                profile.Plan,
		"credits":             profile.Credits,
		"subscription_status": profile.SubscriptionStatus,
	}

	if profile.SubscriptionID != nil && *profile.SubscriptionID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client := billing.NewLemonSqueezyClientFromEnv()
		details, err := client.GetSubscription(ctx, *profile.SubscriptionID)
		if err != nil {
			log.Warnf("[Billing] Subscription lookup for user %d failed: %v", userCtx.UserID, err)
		} else {
			resp["subscription"] = details
		}
	}

	return c.JSON(resp)
}

// HandleCustomerPortal returns the provider's customer portal URL.
func HandleCustomerPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	profile, err := repository.GetGlobalRepositories().Profile.GetByUserID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No billing profile")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load profile")
	}
	if profile.LSCustomerID == nil || *profile.LSCustomerID == "" {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No linked billing customer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := billing.NewLemonSqueezyClientFromEnv()
	portalURL, err := client.GetCustomerPortalURL(ctx, *profile.LSCustomerID)
	if err != nil {
		log.Errorf("[Billing] Portal lookup for user %d failed: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "portal_failed", "Could not load customer portal")
	}

	return c.JSON(fiber.Map{"portal_url": portalURL})
}

// HandleCreditBalance returns only the current credit count. Cheap endpoint
// for dashboard polling after a checkout.
func HandleCreditBalance(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	profile, err := models.GetOrCreateProfile(database.GetDB(), userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load profile")
	}

	return c.JSON(fiber.Map{"credits": profile.Credits, "plan": profile.Plan})
}
