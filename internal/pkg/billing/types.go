package billing

// Webhook event names delivered by LemonSqueezy.
const (
	EventOrderCreated               = "order_created"
	EventSubscriptionCreated        = "subscription_created"
	EventSubscriptionUpdated        = "subscription_updated"
	EventSubscriptionCancelled      = "subscription_cancelled"
	EventSubscriptionPaymentSuccess = "subscription_payment_success"
	EventSubscriptionExpired        = "subscription_expired"
)

// WebhookPayload mirrors the LemonSqueezy webhook envelope. Only the fields
// the service acts on are mapped; the rest of the JSON:API document is ignored.
type WebhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		EventID    string `json:"event_id"`
		CustomData struct {
			UserID   string `json:"user_id"`
			PlanType string `json:"plan_type"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string          `json:"id"`
		Type       string          `json:"type"`
		Attributes EventAttributes `json:"attributes"`
	} `json:"data"`
}

// EventAttributes carries the order and subscription attributes shared
// across event types.
type EventAttributes struct {
	Status     string `json:"status"`
	CustomerID int64  `json:"customer_id"`
	EndsAt     string `json:"ends_at"`
}

// EventOutcome classifies how ProcessEvent handled a delivery. Every outcome
// is acknowledged with HTTP 200 so the provider does not retry events we
// cannot act on.
type EventOutcome string

const (
	OutcomeApplied   EventOutcome = "applied"
	OutcomeDuplicate EventOutcome = "duplicate"
	OutcomeMalformed EventOutcome = "malformed"
	OutcomeIgnored   EventOutcome = "ignored"
)
