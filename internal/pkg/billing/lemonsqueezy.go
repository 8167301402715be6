package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HexGuardSec/HexGuard/internal/pkg/env"
)

const defaultLemonSqueezyAPIBaseURL = "https://api.lemonsqueezy.com/v1"

// LemonSqueezyClient talks to the LemonSqueezy JSON:API.
type LemonSqueezyClient struct {
	APIKey  string
	StoreID string

	VariantCreditPack string
	VariantProMonthly string

	APIBaseURL string
	RedirectURL string

	HTTPClient *http.Client
}

// CheckoutResult is the hosted checkout created for a purchase.
type CheckoutResult struct {
	CheckoutID  string
	CheckoutURL string
}

// SubscriptionURLs are the provider-hosted management links for a subscription.
type SubscriptionURLs struct {
	UpdatePaymentMethod string
	CustomerPortal      string
}

// SubscriptionDetails is the subset of subscription state exposed to clients.
type SubscriptionDetails struct {
	SubscriptionID string
	Status         string
	RenewsAt       string
	EndsAt         string
	CardBrand      string
	CardLastFour   string
	URLs           SubscriptionURLs
}

// NewLemonSqueezyClientFromEnv builds a client from environment configuration.
func NewLemonSqueezyClientFromEnv() *LemonSqueezyClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	redirectURL := strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_REDIRECT_URL", ""))
	if redirectURL == "" && base != "" {
		redirectURL = base + "/dashboard/billing"
	}

	return &LemonSqueezyClient{
		APIKey:            strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_API_KEY", "")),
		StoreID:           strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_STORE_ID", "")),
		VariantCreditPack: strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_VARIANT_CREDITS_50", "")),
		VariantProMonthly: strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_VARIANT_PRO_MONTHLY", "")),
		APIBaseURL:        strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_API_BASE_URL", defaultLemonSqueezyAPIBaseURL)),
		RedirectURL:       redirectURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// VariantForPlanType maps a purchasable plan type to its store variant ID.
func (c *LemonSqueezyClient) VariantForPlanType(planType string) (string, error) {
	switch strings.TrimSpace(planType) {
	case PlanTypeCreditPack:
		if c.VariantCreditPack == "" {
			return "", errors.New("LEMONSQUEEZY_VARIANT_CREDITS_50 is not configured")
		}
		return c.VariantCreditPack, nil
	case PlanTypeProMonthly:
		if c.VariantProMonthly == "" {
			return "", errors.New("LEMONSQUEEZY_VARIANT_PRO_MONTHLY is not configured")
		}
		return c.VariantProMonthly, nil
	default:
		return "", fmt.Errorf("unknown plan type: %s", planType)
	}
}

// CreateCheckout creates a hosted checkout carrying the user reference and
// plan type in custom data, which the webhook handler reads back.
func (c *LemonSqueezyClient) CreateCheckout(ctx context.Context, userID uint, userEmail, planType string) (*CheckoutResult, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("LEMONSQUEEZY_API_KEY is not configured")
	}
	if strings.TrimSpace(c.StoreID) == "" {
		return nil, errors.New("LEMONSQUEEZY_STORE_ID is not configured")
	}
	variantID, err := c.VariantForPlanType(planType)
	if err != nil {
		return nil, err
	}

	checkoutData := map[string]interface{}{
		"custom": map[string]string{
			"user_id":   strconv.FormatUint(uint64(userID), 10),
			"plan_type": strings.TrimSpace(planType),
		},
	}
	if email := strings.TrimSpace(userEmail); email != "" {
		checkoutData["email"] = email
	}

	attributes := map[string]interface{}{
		"checkout_data": checkoutData,
	}
	if c.RedirectURL != "" {
		attributes["product_options"] = map[string]interface{}{
			"redirect_url": c.RedirectURL,
		}
	}

	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type":       "checkouts",
			"attributes": attributes,
			"relationships": map[string]interface{}{
				"store": map[string]interface{}{
					"data": map[string]string{"type": "stores", "id": c.StoreID},
				},
				"variant": map[string]interface{}{
					"data": map[string]string{"type": "variants", "id": variantID},
				},
			},
		},
	}

	var raw struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/checkouts", body, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Data.Attributes.URL) == "" {
		return nil, errors.New("lemonsqueezy checkout response missing url")
	}
	return &CheckoutResult{
		CheckoutID:  raw.Data.ID,
		CheckoutURL: raw.Data.Attributes.URL,
	}, nil
}

// GetSubscription fetches a subscription with its hosted management URLs.
func (c *LemonSqueezyClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionDetails, error) {
	subID := strings.TrimSpace(subscriptionID)
	if subID == "" {
		return nil, errors.New("subscription id is required")
	}

	var raw struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status       string `json:"status"`
				RenewsAt     string `json:"renews_at"`
				EndsAt       string `json:"ends_at"`
				CardBrand    string `json:"card_brand"`
				CardLastFour string `json:"card_last_four"`
				URLs         struct {
					UpdatePaymentMethod string `json:"update_payment_method"`
					CustomerPortal      string `json:"customer_portal"`
				} `json:"urls"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/subscriptions/"+subID, nil, &raw); err != nil {
		return nil, err
	}

	return &SubscriptionDetails{
		SubscriptionID: raw.Data.ID,
		Status:         raw.Data.Attributes.Status,
		RenewsAt:       raw.Data.Attributes.RenewsAt,
		EndsAt:         raw.Data.Attributes.EndsAt,
		CardBrand:      raw.Data.Attributes.CardBrand,
		CardLastFour:   raw.Data.Attributes.CardLastFour,
		URLs: SubscriptionURLs{
			UpdatePaymentMethod: raw.Data.Attributes.URLs.UpdatePaymentMethod,
			CustomerPortal:      raw.Data.Attributes.URLs.CustomerPortal,
		},
	}, nil
}

// GetCustomerPortalURL fetches the signed customer portal link for a customer.
func (c *LemonSqueezyClient) GetCustomerPortalURL(ctx context.Context, customerID string) (string, error) {
	custID := strings.TrimSpace(customerID)
	if custID == "" {
		return "", errors.New("customer id is required")
	}

	var raw struct {
		Data struct {
			Attributes struct {
				URLs struct {
					CustomerPortal string `json:"customer_portal"`
				} `json:"urls"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/customers/"+custID, nil, &raw); err != nil {
		return "", err
	}
	if strings.TrimSpace(raw.Data.Attributes.URLs.CustomerPortal) == "" {
		return "", errors.New("lemonsqueezy customer response missing portal url")
	}
	return raw.Data.Attributes.URLs.CustomerPortal, nil
}

func (c *LemonSqueezyClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("LEMONSQUEEZY_API_KEY is not configured")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	baseURL := strings.TrimRight(c.APIBaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/vnd.api+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("lemonsqueezy request failed: %s %s status=%d body=%s",
			method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return err
		}
	}
	return nil
}
