package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"salonlink.app/cloud/handlers"
	"salonlink.app/cloud/internal/billing"
	"salonlink.app/cloud/internal/config"
	"salonlink.app/cloud/internal/testutil"
	"salonlink.app/cloud/models"
	"salonlink.app/cloud/storage"
)

// End-to-end workflows across sign-up, checkout, and webhook reconciliation.

func newIntegrationServer() (*handlers.Server, *storage.MemoryStorage, *testutil.FakeProvider) {
	cfg := &config.Config{
		Port:                "8080",
		AppURL:              "https://salonlink.test",
		StripeSecret:        "sk_test_123",
		StripeWebhookSecret: testutil.WebhookSecret,
		StripePriceStandard: "price_standard",
		StripePriceBusiness: "price_business",
		StripePricePro:      "price_pro",
		StripePriceSetup:    "price_setup",
	}

	store := testutil.TestStorage()
	provider := testutil.NewFakeProvider()
	reconciler := billing.NewReconciler(store, provider, cfg.Plans(), cfg.StripePriceSetup, cfg.AppURL, cfg.StripeWebhookSecret)

	return handlers.NewHTTPServer(cfg, store, reconciler, "test"), store, provider
}

func doJSON(server *handlers.Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

func TestFullWorkflow_SignupToActiveSubscription(t *testing.T) {
	server, store, provider := newIntegrationServer()

	// Step 1: account provisioning at sign-up.
	w := doJSON(server, http.MethodPost, "/api/v1/profiles", map[string]string{
		"id":           "u1",
		"email":        "owner@salon.example",
		"full_name":    "Hanako Yamada",
		"company_name": "Salon Hanako",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Sign-up failed with status %d: %s", w.Code, w.Body.String())
	}

	// Step 2: start a checkout for the business plan.
	w = doJSON(server, http.MethodPost, "/api/stripe/create-checkout-session", map[string]string{
		"planId": "business",
		"userId": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Checkout failed with status %d: %s", w.Code, w.Body.String())
	}

	var session map[string]string
	_ = json.NewDecoder(w.Body).Decode(&session)
	if session["url"] == "" {
		t.Fatalf("Expected a checkout redirect URL")
	}

	// First checkout: subscription price plus the one-time setup fee.
	req := provider.CheckoutRequests[0]
	if req.PlanPrice != "price_business" || req.SetupPrice != "price_setup" {
		t.Errorf("Expected line items [price_business, price_setup], got [%s, %s]", req.PlanPrice, req.SetupPrice)
	}

	// The customer id is on the profile before the webhook arrives.
	profile, _ := store.GetProfile(context.Background(), "u1")
	if profile.StripeCustomerID != provider.CustomerID {
		t.Fatalf("Expected persisted customer id %q, got %q", provider.CustomerID, profile.StripeCustomerID)
	}

	// Step 3: Stripe reports the completed checkout.
	payload := testutil.CheckoutCompletedEvent("u1", "business", provider.CustomerID, true)
	wreq := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewBuffer(payload))
	wreq.Header.Set("Stripe-Signature", testutil.SignPayload(payload, testutil.WebhookSecret))
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, wreq)
	if rec.Code != http.StatusOK {
		t.Fatalf("Webhook failed with status %d: %s", rec.Code, rec.Body.String())
	}

	profile, _ = store.GetProfile(context.Background(), "u1")
	if profile.SubscriptionStatus != models.StatusActive ||
		profile.SubscriptionPlan != models.PlanBusiness ||
		!profile.SetupFeePaid {
		t.Fatalf("Unexpected profile after activation: %+v", profile)
	}

	// Step 4: the account page can now open the billing portal.
	w = doJSON(server, http.MethodPost, "/api/stripe/create-portal-session", map[string]string{
		"userId": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Portal failed with status %d: %s", w.Code, w.Body.String())
	}

	// Step 5: a second checkout must not charge the setup fee again.
	w = doJSON(server, http.MethodPost, "/api/stripe/create-checkout-session", map[string]string{
		"planId": "pro",
		"userId": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Second checkout failed with status %d", w.Code)
	}
	req = provider.CheckoutRequests[1]
	if req.SetupPrice != "" {
		t.Errorf("Setup fee charged twice")
	}
}

func TestFullWorkflow_DunningAndCancellation(t *testing.T) {
	server, store, provider := newIntegrationServer()

	profile := testutil.CreateTestProfile("u2", "u2@example.com")
	profile.StripeCustomerID = provider.CustomerID
	profile.SubscriptionStatus = models.StatusActive
	profile.SubscriptionPlan = models.PlanStandard
	_ = store.SaveProfile(context.Background(), &profile)

	deliver := func(payload []byte) int {
		req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewBuffer(payload))
		req.Header.Set("Stripe-Signature", testutil.SignPayload(payload, testutil.WebhookSecret))
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)
		return w.Code
	}

	// A failed payment flips the profile to past_due, recovery flips it back.
	if code := deliver(testutil.SubscriptionEvent("customer.subscription.updated", provider.CustomerID, "past_due")); code != http.StatusOK {
		t.Fatalf("past_due delivery failed: %d", code)
	}
	if code := deliver(testutil.SubscriptionEvent("customer.subscription.updated", provider.CustomerID, "active")); code != http.StatusOK {
		t.Fatalf("recovery delivery failed: %d", code)
	}

	saved, _ := store.GetProfile(context.Background(), "u2")
	if saved.SubscriptionStatus != models.StatusActive {
		t.Errorf("Expected active after recovery, got %q", saved.SubscriptionStatus)
	}

	// Cancellation is terminal until the next checkout.
	if code := deliver(testutil.SubscriptionEvent("customer.subscription.deleted", provider.CustomerID, "canceled")); code != http.StatusOK {
		t.Fatalf("cancellation delivery failed: %d", code)
	}

	saved, _ = store.GetProfile(context.Background(), "u2")
	if saved.SubscriptionStatus != models.StatusCanceled {
		t.Errorf("Expected canceled, got %q", saved.SubscriptionStatus)
	}

	// A fresh checkout completion reactivates the account.
	payload := testutil.CheckoutCompletedEvent("u2", "standard", provider.CustomerID, false)
	if code := deliver(payload); code != http.StatusOK {
		t.Fatalf("reactivation delivery failed: %d", code)
	}

	saved, _ = store.GetProfile(context.Background(), "u2")
	if saved.SubscriptionStatus != models.StatusActive {
		t.Errorf("Expected active after resubscription, got %q", saved.SubscriptionStatus)
	}
}

func TestFullWorkflow_ProfileEdit(t *testing.T) {
	server, store, _ := newIntegrationServer()

	profile := testutil.CreateTestProfile("u3", "u3@example.com")
	_ = store.SaveProfile(context.Background(), &profile)

	w := doJSON(server, http.MethodPut, "/api/v1/profiles/u3", map[string]string{
		"full_name":    "Jiro Tanaka",
		"company_name": "Hair Studio Tanaka",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Profile edit failed with status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(server, http.MethodGet, "/api/v1/profiles/u3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Profile fetch failed with status %d", w.Code)
	}

	var got models.Profile
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.FullName != "Jiro Tanaka" || got.CompanyName != "Hair Studio Tanaka" {
		t.Errorf("Unexpected profile after edit: %+v", got)
	}
}
