package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"salonlink.app/cloud/internal/logger"
	"salonlink.app/cloud/models"
)

type CreateProfileRequest struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
}

type UpdateProfileRequest struct {
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
}

// CreateProfile provisions an account record at sign-up. The id is the auth
// system's user id when supplied, otherwise generated.
func (s *Server) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Email required")
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.Must(uuid.NewRandom()).String()
	}

	existing, err := s.Storage.GetProfile(r.Context(), id)
	if err != nil {
		logger.Error("Profile lookup failed", logger.Fields{
			"error":   err.Error(),
			"user_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}
	if existing != nil {
		writeErrorResponse(w, http.StatusConflict, "Profile already exists")
		return
	}

	now := time.Now()
	profile := &models.Profile{
		ID:                 id,
		Email:              req.Email,
		FullName:           req.FullName,
		CompanyName:        req.CompanyName,
		SubscriptionStatus: models.StatusNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.Storage.SaveProfile(r.Context(), profile); err != nil {
		logger.Error("Failed to save profile", logger.Fields{
			"error":   err.Error(),
			"user_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	logger.Info("Profile created", logger.Fields{
		"user_id": profile.ID,
	})

	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := s.Storage.GetProfile(r.Context(), id)
	if err != nil {
		logger.Error("Profile lookup failed", logger.Fields{
			"error":   err.Error(),
			"user_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if profile == nil {
		writeErrorResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile applies the account page edits. Subscription fields are
// owned by the billing reconciler and cannot be changed here.
func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := s.Storage.GetProfile(r.Context(), id)
	if err != nil {
		logger.Error("Profile lookup failed", logger.Fields{
			"error":   err.Error(),
			"user_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	if profile == nil {
		writeErrorResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	profile.FullName = req.FullName
	profile.CompanyName = req.CompanyName
	profile.UpdatedAt = time.Now()

	if err := s.Storage.SaveProfile(r.Context(), profile); err != nil {
		logger.Error("Failed to save profile", logger.Fields{
			"error":   err.Error(),
			"user_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans := make([]string, 0, 3)
	for plan, priceID := range s.Config.Plans() {
		if priceID != "" {
			plans = append(plans, plan)
		}
	}
	sort.Strings(plans)

	writeJSON(w, http.StatusOK, map[string][]string{"plans": plans})
}
