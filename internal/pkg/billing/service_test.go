package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepository keeps profiles and recorded events in memory.
type fakeRepository struct {
	profiles map[uint]*models.Profile
	events   map[string]*models.WebhookEvent
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		profiles: make(map[uint]*models.Profile),
		events:   make(map[string]*models.WebhookEvent),
	}
}

func (f *fakeRepository) GetOrCreateProfile(userID uint) (*models.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	p := &models.Profile{
		UserID:  userID,
		Credits: models.DefaultStartingCredits,
		Plan:    models.PlanFree,
	}
	f.profiles[userID] = p
	return p, nil
}

func (f *fakeRepository) SaveProfile(profile *models.Profile) error {
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *fakeRepository) IncrementCredits(userID uint, amount uint) error {
	p, ok := f.profiles[userID]
	if !ok {
		return nil
	}
	p.Credits += amount
	return nil
}

func (f *fakeRepository) WebhookEventExists(eventID string) (bool, error) {
	_, ok := f.events[eventID]
	return ok, nil
}

func (f *fakeRepository) RecordWebhookEvent(event *models.WebhookEvent) (bool, error) {
	if _, ok := f.events[event.EventID]; ok {
		return false, nil
	}
	f.events[event.EventID] = event
	return true, nil
}

func makePayload(t *testing.T, eventName, eventID string, userID uint, planType string, attrs EventAttributes, dataID string) *WebhookPayload {
	t.Helper()
	var p WebhookPayload
	p.Meta.EventName = eventName
	p.Meta.EventID = eventID
	p.Meta.CustomData.UserID = fmt.Sprintf("%d", userID)
	p.Meta.CustomData.PlanType = planType
	p.Data.ID = dataID
	p.Data.Attributes = attrs
	return &p
}

func TestProcessEventOrderCreatedGrantsCreditPack(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	payload := makePayload(t, EventOrderCreated, "evt-1", 7, PlanTypeCreditPack,
		EventAttributes{Status: "paid"}, "order-1")

	outcome, err := svc.ProcessEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, uint(models.DefaultStartingCredits+50), repo.profiles[7].Credits)
	assert.Len(t, repo.events, 1)
}

func TestProcessEventOrderCreatedIgnoresUnpaidOrder(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	payload := makePayload(t, EventOrderCreated, "evt-1", 7, PlanTypeCreditPack,
		EventAttributes{Status: "pending"}, "order-1")

	outcome, err := svc.ProcessEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	// No grant, but the event is still recorded so retries stay no-ops.
	assert.Empty(t, repo.profiles)
	assert.Len(t, repo.events, 1)
}

func TestProcessEventDuplicateDeliveryAppliesOnce(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	payload := makePayload(t, EventOrderCreated, "evt-dup", 7, PlanTypeCreditPack,
		EventAttributes{Status: "paid"}, "order-1")

	for i := 0; i < 3; i++ {
		outcome, err := svc.ProcessEvent(context.Background(), payload)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, OutcomeApplied, outcome)
		} else {
			assert.Equal(t, OutcomeDuplicate, outcome)
		}
	}

	assert.Equal(t, uint(models.DefaultStartingCredits+50), repo.profiles[7].Credits)
	assert.Len(t, repo.events, 1)
}

func TestProcessEventSubscriptionLifecycle(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	ctx := context.Background()

	// Activation: FREE with starting balance becomes PRO with the monthly grant.
	created := makePayload(t, EventSubscriptionCreated, "evt-sub-1", 9, PlanTypeProMonthly,
		EventAttributes{Status: "active", CustomerID: 4711}, "sub-123")
	outcome, err := svc.ProcessEvent(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	profile := repo.profiles[9]
	assert.Equal(t, models.PlanPro, profile.Plan)
	assert.Equal(t, models.SubscriptionStatusActive, profile.SubscriptionStatus)
	require.NotNil(t, profile.SubscriptionID)
	assert.Equal(t, "sub-123", *profile.SubscriptionID)
	require.NotNil(t, profile.LSCustomerID)
	assert.Equal(t, "4711", *profile.LSCustomerID)
	assert.Equal(t, uint(models.DefaultStartingCredits+ProMonthlyCredits), profile.Credits)

	// Cancellation keeps PRO and the balance until the period ends.
	cancelled := makePayload(t, EventSubscriptionCancelled, "evt-sub-2", 9, "",
		EventAttributes{Status: "cancelled", EndsAt: "2026-09-30T00:00:00Z"}, "sub-123")
	_, err = svc.ProcessEvent(ctx, cancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, profile.Plan)
	assert.Equal(t, models.SubscriptionStatusCancelled, profile.SubscriptionStatus)
	assert.Equal(t, uint(models.DefaultStartingCredits+ProMonthlyCredits), profile.Credits)

	// Expiry downgrades to FREE and clears the subscription linkage.
	expired := makePayload(t, EventSubscriptionExpired, "evt-sub-3", 9, "",
		EventAttributes{Status: "expired"}, "sub-123")
	_, err = svc.ProcessEvent(ctx, expired)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, profile.Plan)
	assert.Equal(t, models.SubscriptionStatusExpired, profile.SubscriptionStatus)
	assert.Nil(t, profile.SubscriptionID)
}

func TestProcessEventPaymentSuccessRecharges(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	payload := makePayload(t, EventSubscriptionPaymentSuccess, "evt-pay-1", 5, "",
		EventAttributes{}, "sub-9")
	_, err := svc.ProcessEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, uint(models.DefaultStartingCredits+ProMonthlyCredits), repo.profiles[5].Credits)
}

func TestProcessEventMalformedUserID(t *testing.T) {
	tests := []struct {
		name   string
		userID string
	}{
		{"empty", ""},
		{"non numeric", "not-a-number"},
		{"zero", "0"},
		{"negative", "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			svc := NewService(repo)

			var p WebhookPayload
			p.Meta.EventName = EventOrderCreated
			p.Meta.EventID = "evt-bad"
			p.Meta.CustomData.UserID = tt.userID
			p.Data.Attributes.Status = "paid"

			outcome, err := svc.ProcessEvent(context.Background(), &p)
			require.NoError(t, err)
			assert.Equal(t, OutcomeMalformed, outcome)
			assert.Empty(t, repo.profiles)
			assert.Empty(t, repo.events)
		})
	}
}

func TestProcessEventMissingEventID(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	var p WebhookPayload
	p.Meta.EventName = EventOrderCreated
	p.Meta.CustomData.UserID = "7"

	outcome, err := svc.ProcessEvent(context.Background(), &p)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMalformed, outcome)
	assert.Empty(t, repo.events)
}

func TestProcessEventUnknownTypeRecordedButIgnored(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	payload := makePayload(t, "order_refunded", "evt-odd", 7, "",
		EventAttributes{Status: "refunded"}, "order-1")
	outcome, err := svc.ProcessEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, repo.profiles)
	assert.Len(t, repo.events, 1)
}

func TestWebhookPayloadParsing(t *testing.T) {
	raw := `{
		"meta": {
			"event_name": "subscription_created",
			"event_id": "b1f9f4a2",
			"custom_data": {"user_id": "42", "plan_type": "PRO_MONTHLY"}
		},
		"data": {
			"type": "subscriptions",
			"id": "314159",
			"attributes": {"status": "active", "customer_id": 271828}
		}
	}`

	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, EventSubscriptionCreated, p.Meta.EventName)
	assert.Equal(t, "b1f9f4a2", p.Meta.EventID)
	assert.Equal(t, "42", p.Meta.CustomData.UserID)
	assert.Equal(t, "314159", p.Data.ID)
	assert.Equal(t, int64(271828), p.Data.Attributes.CustomerID)
}
