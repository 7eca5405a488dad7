package testutil

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"salonlink.app/cloud/internal/billing"
	"salonlink.app/cloud/models"
	"salonlink.app/cloud/storage"
)

const WebhookSecret = "whsec_test_secret"

// TestStorage creates an empty in-memory profile store.
func TestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// CreateTestProfile returns a profile with no billing relationship yet.
func CreateTestProfile(id, email string) models.Profile {
	now := time.Now()
	return models.Profile{
		ID:                 id,
		Email:              email,
		FullName:           "Test User",
		SubscriptionStatus: models.StatusNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// SignPayload builds a valid Stripe-Signature header for the payload.
func SignPayload(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

// CheckoutCompletedEvent builds a checkout.session.completed event body.
func CheckoutCompletedEvent(userID, planID, customerID string, setupFee bool) []byte {
	return eventPayload("checkout.session.completed", map[string]any{
		"id":       "cs_test_" + userID,
		"object":   "checkout.session",
		"customer": customerID,
		"metadata": map[string]any{
			"userId":   userID,
			"planId":   planID,
			"setupFee": fmt.Sprintf("%t", setupFee),
		},
	})
}

// SubscriptionEvent builds a customer.subscription.updated/deleted event body.
func SubscriptionEvent(eventType, customerID, status string) []byte {
	return eventPayload(eventType, map[string]any{
		"id":       "sub_test_" + customerID,
		"object":   "subscription",
		"customer": customerID,
		"status":   status,
	})
}

func eventPayload(eventType string, object map[string]any) []byte {
	payload, err := json.Marshal(map[string]any{
		"id":      "evt_test_1",
		"object":  "event",
		"type":    eventType,
		"created": time.Now().Unix(),
		"data": map[string]any{
			"object": object,
		},
	})
	if err != nil {
		panic(err)
	}
	return payload
}

// FakeProvider is a billing.Provider double recording what was requested.
type FakeProvider struct {
	CustomerID string
	SessionURL string
	PortalURL  string

	CreatedCustomers []string
	CheckoutRequests []*billing.CheckoutRequest
	PortalCustomers  []string

	CustomerErr error
	SessionErr  error
	PortalErr   error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		CustomerID: "cus_fake_1",
		SessionURL: "https://checkout.stripe.test/session",
		PortalURL:  "https://billing.stripe.test/portal",
	}
}

func (f *FakeProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	if f.CustomerErr != nil {
		return "", f.CustomerErr
	}
	f.CreatedCustomers = append(f.CreatedCustomers, userID)
	return f.CustomerID, nil
}

func (f *FakeProvider) CreateCheckoutSession(ctx context.Context, req *billing.CheckoutRequest) (string, error) {
	if f.SessionErr != nil {
		return "", f.SessionErr
	}
	f.CheckoutRequests = append(f.CheckoutRequests, req)
	return f.SessionURL, nil
}

func (f *FakeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if f.PortalErr != nil {
		return "", f.PortalErr
	}
	f.PortalCustomers = append(f.PortalCustomers, customerID)
	return f.PortalURL, nil
}
