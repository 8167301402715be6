package billing

import (
	"strings"

	"github.com/HexGuardSec/HexGuard/app/models"
)

// Purchasable plan types embedded in checkout custom_data.
const (
	PlanTypeCreditPack = "CREDITS_50"
	PlanTypeProMonthly = "PRO_MONTHLY"
)

// Credit amounts per one-time purchase plan type.
var CreditAmounts = map[string]uint{
	PlanTypeCreditPack: 50,
}

// DefaultOrderCredits is granted when an order carries an unmapped plan type.
const DefaultOrderCredits = 50

// ProMonthlyCredits is granted on subscription activation and on every
// successful monthly payment.
const ProMonthlyCredits = 30

// normalizePlan folds arbitrary plan strings onto the two internal plans.
func normalizePlan(plan string) string {
	if strings.EqualFold(strings.TrimSpace(plan), models.PlanPro) {
		return models.PlanPro
	}
	return models.PlanFree
}

// PlanForSubscriptionStatus maps a provider subscription status to the plan
// it entitles. Only an active subscription carries PRO; a cancelled one keeps
// whatever plan the profile already holds until the expiry event arrives.
func PlanForSubscriptionStatus(status string) string {
	if strings.EqualFold(strings.TrimSpace(status), models.SubscriptionStatusActive) {
		return models.PlanPro
	}
	return models.PlanFree
}

// OrderCreditsForPlanType resolves the credit grant for a paid order.
func OrderCreditsForPlanType(planType string) uint {
	if amount, ok := CreditAmounts[strings.TrimSpace(planType)]; ok {
		return amount
	}
	return DefaultOrderCredits
}
