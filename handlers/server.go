package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"salonlink.app/cloud/internal/billing"
	"salonlink.app/cloud/internal/config"
	"salonlink.app/cloud/internal/ratelimit"
	"salonlink.app/cloud/storage"
)

type Server struct {
	Router  chi.Router
	Storage storage.Storage
	Billing *billing.Reconciler
	Config  *config.Config
	Version string
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHTTPServer(cfg *config.Config, store storage.Storage, reconciler *billing.Reconciler, version string) *Server {
	router := chi.NewRouter()

	s := &Server{
		Router:  router,
		Storage: store,
		Billing: reconciler,
		Config:  cfg,
		Version: version,
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AppURL},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Stripe-Signature"},
		MaxAge:         300,
	}))

	router.Get("/health", s.Health)

	// Webhooks are not behind the limiter: Stripe retries on 429 but a
	// dropped delivery delays subscription state until the next retry.
	router.Post("/api/stripe/webhook", s.StripeWebhook)

	sessionLimiter := ratelimit.New(30, 10*time.Minute)
	router.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(sessionLimiter))
		r.Post("/api/stripe/create-checkout-session", s.CreateCheckoutSession)
		r.Post("/api/stripe/create-portal-session", s.CreatePortalSession)
	})

	router.Get("/api/v1/plans", s.ListPlans)
	router.Post("/api/v1/profiles", s.CreateProfile)
	router.Get("/api/v1/profiles/{id}", s.GetProfile)
	router.Put("/api/v1/profiles/{id}", s.UpdateProfile)

	if cfg.StaticDir != "" {
		router.NotFound(s.serveStatic)
	}

	return s
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.Version,
		Timestamp: time.Now(),
	})
}

// serveStatic serves the built landing page, falling back to index.html so
// client-side routes resolve.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.Config.StaticDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() && strings.HasPrefix(path, s.Config.StaticDir) {
		http.ServeFile(w, r, path)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.Config.StaticDir, "index.html"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
