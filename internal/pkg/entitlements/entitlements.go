package entitlements

import (
	"strings"

	"github.com/HexGuardSec/HexGuard/app/models"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Normalize folds a stored plan string onto a known Plan value.
func Normalize(plan string) Plan {
	if strings.EqualFold(strings.TrimSpace(plan), models.PlanPro) {
		return PlanPro
	}
	return PlanFree
}

// CanPurchaseCreditPack reports whether the plan may buy one-time credit
// packs. Packs top up the monthly allowance and are reserved for subscribers.
func CanPurchaseCreditPack(plan Plan) bool {
	return plan == PlanPro
}

// CanCreatePrivateScan reports whether the plan may hide reports from the
// community feed.
func CanCreatePrivateScan(plan Plan) bool {
	return plan == PlanPro
}

// MaxFilesPerScan returns the upload cap for FILES submissions.
func MaxFilesPerScan(plan Plan) int {
	if plan == PlanPro {
		return 20
	}
	return 5
}
