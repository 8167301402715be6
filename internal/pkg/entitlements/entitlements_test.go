package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  Plan
	}{
		{"PRO", PlanPro},
		{"pro", PlanPro},
		{" Pro ", PlanPro},
		{"FREE", PlanFree},
		{"", PlanFree},
		{"enterprise", PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestPlanGates(t *testing.T) {
	assert.True(t, CanPurchaseCreditPack(PlanPro))
	assert.False(t, CanPurchaseCreditPack(PlanFree))

	assert.True(t, CanCreatePrivateScan(PlanPro))
	assert.False(t, CanCreatePrivateScan(PlanFree))

	assert.Equal(t, 20, MaxFilesPerScan(PlanPro))
	assert.Equal(t, 5, MaxFilesPerScan(PlanFree))
}
