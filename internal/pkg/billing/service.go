package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Service applies verified billing webhook events to user profiles.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ProcessEvent applies one verified webhook delivery. Effects run at most
// once per event ID: a delivery whose ID is already recorded short-circuits
// before touching any profile. Malformed deliveries are classified and
// skipped so the provider does not keep retrying them.
func (s *Service) ProcessEvent(ctx context.Context, payload *WebhookPayload) (EventOutcome, error) {
	_ = ctx
	eventName := strings.TrimSpace(payload.Meta.EventName)
	eventID := strings.TrimSpace(payload.Meta.EventID)

	if eventID == "" {
		log.Warnf("[Billing] Webhook without event_id (type=%s), skipping", eventName)
		return OutcomeMalformed, nil
	}

	exists, err := s.repo.WebhookEventExists(eventID)
	if err != nil {
		return "", fmt.Errorf("webhook dedup lookup failed: %w", err)
	}
	if exists {
		log.Infof("[Billing] Event %s already processed, skipping", eventID)
		return OutcomeDuplicate, nil
	}

	userID, ok := parseUserID(payload.Meta.CustomData.UserID)
	if !ok {
		log.Warnf("[Billing] Event %s (%s) carries no usable user_id (%q), skipping",
			eventID, eventName, payload.Meta.CustomData.UserID)
		return OutcomeMalformed, nil
	}

	outcome := OutcomeApplied
	switch eventName {
	case EventOrderCreated:
		err = s.applyOrderCreated(userID, payload)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		err = s.applySubscriptionSync(userID, payload)
	case EventSubscriptionCancelled:
		err = s.applySubscriptionCancelled(userID, payload)
	case EventSubscriptionPaymentSuccess:
		err = s.applyPaymentSuccess(userID)
	case EventSubscriptionExpired:
		err = s.applySubscriptionExpired(userID)
	default:
		log.Infof("[Billing] Unhandled event type: %s", eventName)
		outcome = OutcomeIgnored
	}
	if err != nil {
		return "", err
	}

	if _, err := s.repo.RecordWebhookEvent(&models.WebhookEvent{
		EventID:     eventID,
		EventType:   eventName,
		ProcessedAt: time.Now(),
	}); err != nil {
		return "", fmt.Errorf("failed to record webhook event %s: %w", eventID, err)
	}

	return outcome, nil
}

// applyOrderCreated grants the credit pack for a paid one-time order.
func (s *Service) applyOrderCreated(userID uint, payload *WebhookPayload) error {
	if !strings.EqualFold(payload.Data.Attributes.Status, "paid") {
		return nil
	}
	amount := OrderCreditsForPlanType(payload.Meta.CustomData.PlanType)
	if _, err := s.repo.GetOrCreateProfile(userID); err != nil {
		return err
	}
	if err := s.repo.IncrementCredits(userID, amount); err != nil {
		return err
	}
	log.Infof("[Billing] Added %d credits to user %d", amount, userID)
	return nil
}

// applySubscriptionSync persists subscription linkage and sets the plan from
// the subscription status. An active subscription also grants the monthly
// credit allowance.
func (s *Service) applySubscriptionSync(userID uint, payload *WebhookPayload) error {
	profile, err := s.repo.GetOrCreateProfile(userID)
	if err != nil {
		return err
	}

	status := strings.ToLower(strings.TrimSpace(payload.Data.Attributes.Status))
	profile.Plan = PlanForSubscriptionStatus(status)
	profile.SubscriptionStatus = status
	if subID := strings.TrimSpace(payload.Data.ID); subID != "" {
		profile.SubscriptionID = &subID
	}
	if payload.Data.Attributes.CustomerID != 0 {
		customerID := strconv.FormatInt(payload.Data.Attributes.CustomerID, 10)
		profile.LSCustomerID = &customerID
	}
	if err := s.repo.SaveProfile(profile); err != nil {
		return err
	}

	if status == models.SubscriptionStatusActive {
		if err := s.repo.IncrementCredits(userID, ProMonthlyCredits); err != nil {
			return err
		}
	}

	log.Infof("[Billing] Updated subscription for user %d: %s (%s)", userID, profile.Plan, status)
	return nil
}

// applySubscriptionCancelled marks the subscription cancelled. The plan is
// kept: a cancelled subscription stays PRO until the provider sends the
// expiry event at period end.
func (s *Service) applySubscriptionCancelled(userID uint, payload *WebhookPayload) error {
	profile, err := s.repo.GetOrCreateProfile(userID)
	if err != nil {
		return err
	}
	profile.SubscriptionStatus = models.SubscriptionStatusCancelled
	if err := s.repo.SaveProfile(profile); err != nil {
		return err
	}
	log.Infof("[Billing] Subscription cancelled for user %d, ends at: %s",
		userID, payload.Data.Attributes.EndsAt)
	return nil
}

// applyPaymentSuccess recharges the monthly credit allowance.
func (s *Service) applyPaymentSuccess(userID uint) error {
	if _, err := s.repo.GetOrCreateProfile(userID); err != nil {
		return err
	}
	if err := s.repo.IncrementCredits(userID, ProMonthlyCredits); err != nil {
		return err
	}
	log.Infof("[Billing] Recharged %d credits for user %d", ProMonthlyCredits, userID)
	return nil
}

// applySubscriptionExpired downgrades to FREE and clears the subscription
// linkage. Credits already granted are kept.
func (s *Service) applySubscriptionExpired(userID uint) error {
	profile, err := s.repo.GetOrCreateProfile(userID)
	if err != nil {
		return err
	}
	profile.Plan = models.PlanFree
	profile.SubscriptionStatus = models.SubscriptionStatusExpired
	profile.SubscriptionID = nil
	if err := s.repo.SaveProfile(profile); err != nil {
		return err
	}
	log.Infof("[Billing] Subscription expired for user %d, downgraded to FREE", userID)
	return nil
}

// parseUserID reads the checkout custom_data user reference. Checkouts embed
// the numeric user ID as a string.
func parseUserID(raw string) (uint, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
