package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/KosherKev/centralized-webhook-dispatcher/config"
	"github.com/KosherKev/centralized-webhook-dispatcher/health"
	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook"
)

// Handlers sets up the dispatcher HTTP surface: the provider-facing intake
// endpoint, operational endpoints and the admin API.
func Handlers(cfg *config.Config, dispatcher *webhook.Dispatcher, registry *subscriber.Registry, checker *health.Checker, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("webhook-dispatcher", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/webhooks/{provider}", postWebhook(cfg, dispatcher).ServeHTTP)

	r.Get("/health", getHealth(checker, registry).ServeHTTP)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAPIKey(cfg.AdminAPIKey))
		r.Get("/subscribers", getSubscribers(registry).ServeHTTP)
		r.Post("/subscribers", postSubscriber(registry).ServeHTTP)
		r.Post("/test-forward/{subscriberID}", postTestForward(dispatcher, registry).ServeHTTP)
	})

	return r
}

// getHealth handles GET /health. It always answers 200; per-subscriber
// reachability lives in the body.
func getHealth(checker *health.Checker, registry *subscriber.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := checker.Check(r.Context(), registry.Snapshot())
		respondJSON(w, http.StatusOK, report)
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
