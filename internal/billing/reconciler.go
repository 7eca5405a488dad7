package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"salonlink.app/cloud/internal/email"
	"salonlink.app/cloud/internal/logger"
	"salonlink.app/cloud/models"
	"salonlink.app/cloud/storage"
)

var (
	ErrUnknownPlan      = errors.New("unknown plan")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrNoBillingAccount = errors.New("no billing relationship for profile")
	ErrBadSignature     = errors.New("webhook signature verification failed")
	ErrBadPayload       = errors.New("malformed event payload")
)

// CheckoutRequest describes one hosted checkout session to create at the
// provider. SetupPrice is empty when no one-time setup fee line item applies.
type CheckoutRequest struct {
	CustomerID string
	PlanPrice  string
	SetupPrice string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Provider is the payment provider surface the reconciler needs. The live
// implementation wraps Stripe; tests substitute doubles.
type Provider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Reconciler translates provider events and user billing actions into
// profile mutations. Every mutation is a full-field overwrite keyed by a
// stable identifier, so redelivered events are safe to reapply.
type Reconciler struct {
	storage       storage.Storage
	provider      Provider
	plans         map[string]string
	setupPrice    string
	appURL        string
	webhookSecret string
}

func NewReconciler(store storage.Storage, provider Provider, plans map[string]string, setupPrice, appURL, webhookSecret string) *Reconciler {
	return &Reconciler{
		storage:       store,
		provider:      provider,
		plans:         plans,
		setupPrice:    setupPrice,
		appURL:        appURL,
		webhookSecret: webhookSecret,
	}
}

// Checkout builds a hosted checkout session for the given plan and returns
// its redirect URL. A Stripe customer is created and persisted before the
// session call, so a retry after a partial failure reuses the customer
// instead of minting another one.
func (r *Reconciler) Checkout(ctx context.Context, planID, userID string) (string, error) {
	priceID, ok := r.plans[planID]
	if !ok || priceID == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}

	profile, err := r.storage.GetProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("profile lookup failed: %w", err)
	}
	if profile == nil {
		return "", fmt.Errorf("%w: %q", ErrProfileNotFound, userID)
	}

	customerID := profile.StripeCustomerID
	if customerID == "" {
		customerID, err = r.provider.CreateCustomer(ctx, profile.Email, profile.ID)
		if err != nil {
			return "", fmt.Errorf("failed to create customer: %w", err)
		}

		profile.StripeCustomerID = customerID
		profile.UpdatedAt = time.Now()
		if err := r.storage.SaveProfile(ctx, profile); err != nil {
			// The customer now exists at Stripe but not locally. Accepted:
			// the next attempt creates a fresh one and the orphan is inert.
			return "", fmt.Errorf("failed to persist customer id: %w", err)
		}

		logger.Info("Stripe customer created", logger.Fields{
			"user_id":            profile.ID,
			"stripe_customer_id": customerID,
		})
	}

	chargeSetup := r.setupPrice != "" && !profile.SetupFeePaid

	req := &CheckoutRequest{
		CustomerID: customerID,
		PlanPrice:  priceID,
		SuccessURL: r.appURL + "/mypage?success=true",
		CancelURL:  r.appURL + "/mypage?canceled=true",
		Metadata: map[string]string{
			"userId":   userID,
			"planId":   planID,
			"setupFee": fmt.Sprintf("%t", chargeSetup),
		},
	}
	if chargeSetup {
		req.SetupPrice = r.setupPrice
	}

	url, err := r.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return url, nil
}

// Portal builds a billing portal session for a profile that already has a
// Stripe customer. Without one there is nothing to manage, so the call is
// rejected before contacting the provider.
func (r *Reconciler) Portal(ctx context.Context, userID string) (string, error) {
	profile, err := r.storage.GetProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("profile lookup failed: %w", err)
	}
	if profile == nil {
		return "", fmt.Errorf("%w: %q", ErrProfileNotFound, userID)
	}
	if profile.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}

	url, err := r.provider.CreatePortalSession(ctx, profile.StripeCustomerID, r.appURL+"/mypage")
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}

	return url, nil
}

// ApplyEvent verifies and applies one webhook delivery. Unverified payloads
// never reach dispatch. Event kinds other than the three subscription
// lifecycle events are accepted and ignored.
func (r *Reconciler) ApplyEvent(ctx context.Context, payload []byte, sigHeader string) error {
	// The endpoint's configured API version can trail the SDK pin; the
	// signature check is what authenticates the payload.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, r.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	logger.Info("Stripe event verified", logger.Fields{
		"event_type": event.Type,
		"event_id":   event.ID,
	})

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return r.applyCheckoutCompleted(ctx, &session)

	case "customer.subscription.updated":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return r.applySubscriptionUpdated(ctx, &subscription)

	case "customer.subscription.deleted":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return r.applySubscriptionDeleted(ctx, &subscription)

	default:
		logger.Debug("Ignoring unhandled event type", logger.Fields{
			"event_type": event.Type,
			"event_id":   event.ID,
		})
		return nil
	}
}

func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	userID := session.Metadata["userId"]
	planID := session.Metadata["planId"]
	if userID == "" || planID == "" {
		logger.Warn("Checkout session missing metadata", logger.Fields{
			"session_id": session.ID,
		})
		return nil
	}

	profile, err := r.storage.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("profile lookup failed: %w", err)
	}
	if profile == nil {
		logger.Warn("Checkout completed for unknown profile", logger.Fields{
			"user_id":    userID,
			"session_id": session.ID,
		})
		return nil
	}

	if session.Customer != nil && session.Customer.ID != "" {
		profile.StripeCustomerID = session.Customer.ID
	}
	profile.SubscriptionStatus = models.StatusActive
	profile.SubscriptionPlan = planID
	if session.Metadata["setupFee"] == "true" {
		// write-once-true, never reset
		profile.SetupFeePaid = true
	}
	profile.UpdatedAt = time.Now()

	if err := r.storage.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	logger.Info("Subscription activated", logger.Fields{
		"user_id": userID,
		"plan":    planID,
	})

	return nil
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, subscription *stripe.Subscription) error {
	customerID := subscriptionCustomerID(subscription)
	if customerID == "" {
		logger.Warn("Subscription event missing customer id", logger.Fields{
			"subscription_id": subscription.ID,
		})
		return nil
	}

	profile, err := r.storage.FindProfileByStripeCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("profile lookup failed: %w", err)
	}
	if profile == nil {
		logger.Warn("Subscription update for unknown customer", logger.Fields{
			"stripe_customer_id": customerID,
		})
		return nil
	}

	previous := profile.SubscriptionStatus
	profile.SubscriptionStatus = mapSubscriptionStatus(subscription.Status)
	profile.UpdatedAt = time.Now()

	if err := r.storage.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	logger.Info("Subscription status updated", logger.Fields{
		"user_id": profile.ID,
		"status":  profile.SubscriptionStatus,
	})

	if profile.SubscriptionStatus == models.StatusPastDue && previous != models.StatusPastDue {
		r.notifyPaymentFailed(profile)
	}

	return nil
}

// notifyPaymentFailed emails the owner about a failed charge. Delivery
// problems are logged and swallowed: the state change already happened and
// Stripe keeps its own dunning emails going regardless.
func (r *Reconciler) notifyPaymentFailed(profile *models.Profile) {
	if !email.Configured() {
		return
	}
	if err := email.SendPaymentFailed(profile.Email, profile.FullName, r.appURL); err != nil {
		logger.Error("Failed to send payment failure email", logger.Fields{
			"error":   err.Error(),
			"user_id": profile.ID,
		})
	}
}

func (r *Reconciler) notifyCanceled(profile *models.Profile) {
	if !email.Configured() {
		return
	}
	if err := email.SendSubscriptionCanceled(profile.Email, profile.FullName, r.appURL); err != nil {
		logger.Error("Failed to send cancellation email", logger.Fields{
			"error":   err.Error(),
			"user_id": profile.ID,
		})
	}
}

func (r *Reconciler) applySubscriptionDeleted(ctx context.Context, subscription *stripe.Subscription) error {
	customerID := subscriptionCustomerID(subscription)
	if customerID == "" {
		logger.Warn("Subscription event missing customer id", logger.Fields{
			"subscription_id": subscription.ID,
		})
		return nil
	}

	profile, err := r.storage.FindProfileByStripeCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("profile lookup failed: %w", err)
	}
	if profile == nil {
		logger.Warn("Subscription delete for unknown customer", logger.Fields{
			"stripe_customer_id": customerID,
		})
		return nil
	}

	profile.SubscriptionStatus = models.StatusCanceled
	profile.UpdatedAt = time.Now()

	if err := r.storage.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	logger.Info("Subscription canceled", logger.Fields{
		"user_id": profile.ID,
	})

	r.notifyCanceled(profile)

	return nil
}

// mapSubscriptionStatus folds Stripe subscription statuses into the local
// enum. Statuses without a local counterpart (incomplete, unpaid, trialing,
// paused) fall back to "none" rather than guessing a finer mapping.
func mapSubscriptionStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive:
		return models.StatusActive
	case stripe.SubscriptionStatusCanceled:
		return models.StatusCanceled
	case stripe.SubscriptionStatusPastDue:
		return models.StatusPastDue
	default:
		return models.StatusNone
	}
}

func subscriptionCustomerID(subscription *stripe.Subscription) string {
	if subscription.Customer == nil {
		return ""
	}
	return subscription.Customer.ID
}
