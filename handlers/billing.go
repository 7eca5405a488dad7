package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"salonlink.app/cloud/internal/billing"
	"salonlink.app/cloud/internal/logger"
)

type CheckoutSessionRequest struct {
	PlanID string `json:"planId"`
	UserID string `json:"userId"`
}

type PortalSessionRequest struct {
	UserID string `json:"userId"`
}

type SessionResponse struct {
	URL string `json:"url"`
}

func (s *Server) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if s.Billing == nil {
		writeErrorResponse(w, http.StatusInternalServerError, "Billing not configured")
		return
	}

	var req CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "User ID required")
		return
	}

	url, err := s.Billing.Checkout(r.Context(), req.PlanID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrUnknownPlan):
			writeErrorResponse(w, http.StatusBadRequest, "Invalid plan")
		case errors.Is(err, billing.ErrProfileNotFound):
			writeErrorResponse(w, http.StatusBadRequest, "Unknown user")
		default:
			logger.Error("Checkout session failed", logger.Fields{
				"error":   err.Error(),
				"user_id": req.UserID,
				"plan":    req.PlanID,
			})
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to create checkout session")
		}
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{URL: url})
}

func (s *Server) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	if s.Billing == nil {
		writeErrorResponse(w, http.StatusInternalServerError, "Billing not configured")
		return
	}

	var req PortalSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "User ID required")
		return
	}

	url, err := s.Billing.Portal(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrProfileNotFound):
			writeErrorResponse(w, http.StatusBadRequest, "Unknown user")
		case errors.Is(err, billing.ErrNoBillingAccount):
			writeErrorResponse(w, http.StatusBadRequest, "No Stripe customer found")
		default:
			logger.Error("Portal session failed", logger.Fields{
				"error":   err.Error(),
				"user_id": req.UserID,
			})
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to create portal session")
		}
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{URL: url})
}
