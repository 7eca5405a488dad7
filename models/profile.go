package models

import "time"

// Subscription lifecycle states. "canceled" only leaves via a fresh checkout.
const (
	StatusNone     = "none"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

const (
	PlanStandard = "standard"
	PlanBusiness = "business"
	PlanPro      = "pro"
)

// Profile is one end-customer's account and subscription state.
// FullName, CompanyName and SubscriptionPlan are empty until set.
type Profile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	CompanyName        string    `json:"company_name"`
	StripeCustomerID   string    `json:"stripe_customer_id"`
	SetupFeePaid       bool      `json:"setup_fee_paid"`
	SubscriptionStatus string    `json:"subscription_status"`
	SubscriptionPlan   string    `json:"subscription_plan"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func ValidPlan(plan string) bool {
	switch plan {
	case PlanStandard, PlanBusiness, PlanPro:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusNone, StatusActive, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}
