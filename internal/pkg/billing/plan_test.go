package billing

import (
	"testing"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/stretchr/testify/assert"
)

func TestPlanForSubscriptionStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"active", models.PlanPro},
		{"ACTIVE", models.PlanPro},
		{" active ", models.PlanPro},
		{"cancelled", models.PlanFree},
		{"expired", models.PlanFree},
		{"past_due", models.PlanFree},
		{"", models.PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanForSubscriptionStatus(tt.status))
		})
	}
}

func TestOrderCreditsForPlanType(t *testing.T) {
	assert.Equal(t, uint(50), OrderCreditsForPlanType(PlanTypeCreditPack))
	assert.Equal(t, uint(DefaultOrderCredits), OrderCreditsForPlanType("SOMETHING_ELSE"))
	assert.Equal(t, uint(DefaultOrderCredits), OrderCreditsForPlanType(""))
}

func TestNormalizePlan(t *testing.T) {
	assert.Equal(t, models.PlanPro, normalizePlan("pro"))
	assert.Equal(t, models.PlanPro, normalizePlan(" PRO "))
	assert.Equal(t, models.PlanFree, normalizePlan("free"))
	assert.Equal(t, models.PlanFree, normalizePlan("enterprise"))
}
