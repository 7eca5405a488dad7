package handlers

import (
	"errors"
	"io"
	"net/http"

	"salonlink.app/cloud/internal/billing"
	"salonlink.app/cloud/internal/logger"
)

func (s *Server) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	logger.Info("Stripe webhook received", logger.Fields{
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.Header.Get("User-Agent"),
	})

	if s.Billing == nil {
		logger.Error("Webhook received but billing is not configured")
		writeErrorResponse(w, http.StatusInternalServerError, "Billing not configured")
		return
	}

	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read webhook payload", logger.Fields{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	err = s.Billing.ApplyEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrBadSignature), errors.Is(err, billing.ErrBadPayload):
			logger.Error("Webhook rejected", logger.Fields{
				"error": err.Error(),
			})
			w.WriteHeader(http.StatusBadRequest)
		default:
			// Non-2xx makes Stripe redeliver, which is what we want when
			// the store write failed.
			logger.Error("Webhook processing failed", logger.Fields{
				"error": err.Error(),
			})
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
