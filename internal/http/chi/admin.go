package chi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook"
)

// subscriberRequest is the admin payload for registering a subscriber.
// Enabled defaults to true when omitted, matching the file loader.
type subscriberRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BaseURL     string `json:"base_url"`
	WebhookPath string `json:"webhook_path"`
	VerifyPath  string `json:"verify_path"`
	Enabled     *bool  `json:"enabled"`
	TimeoutMS   int    `json:"timeout_ms"`
}

func (r subscriberRequest) toSubscriber() subscriber.Subscriber {
	sub := subscriber.Subscriber{
		ID:          r.ID,
		Name:        r.Name,
		BaseURL:     r.BaseURL,
		WebhookPath: r.WebhookPath,
		VerifyPath:  r.VerifyPath,
		Enabled:     true,
		Timeout:     time.Duration(r.TimeoutMS) * time.Millisecond,
	}
	if r.Enabled != nil {
		sub.Enabled = *r.Enabled
	}
	return sub
}

// subscriberResponse is the admin view of a registered subscriber
type subscriberResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BaseURL     string `json:"base_url"`
	WebhookPath string `json:"webhook_path"`
	VerifyPath  string `json:"verify_path"`
	Enabled     bool   `json:"enabled"`
	TimeoutMS   int64  `json:"timeout_ms,omitempty"`
}

func toSubscriberResponse(sub subscriber.Subscriber) subscriberResponse {
	return subscriberResponse{
		ID:          sub.ID,
		Name:        sub.Name,
		BaseURL:     sub.BaseURL,
		WebhookPath: sub.WebhookPath,
		VerifyPath:  sub.VerifyPath,
		Enabled:     sub.Enabled,
		TimeoutMS:   sub.Timeout.Milliseconds(),
	}
}

// requireAPIKey guards the admin surface with a static bearer key. An empty
// key leaves the surface open for local and trusted-network deployments.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getSubscribers handles GET /admin/subscribers
func getSubscribers(registry *subscriber.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subs := registry.Snapshot()
		responses := make([]subscriberResponse, 0, len(subs))
		for _, sub := range subs {
			responses = append(responses, toSubscriberResponse(sub))
		}
		respondJSON(w, http.StatusOK, responses)
	})
}

// postSubscriber handles POST /admin/subscribers
func postSubscriber(registry *subscriber.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request subscriberRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("decoding subscriber: %v", err),
			})
			return
		}

		sub := request.toSubscriber()
		sub.Normalize()
		if err := sub.Validate(); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		if err := registry.Append(r.Context(), sub); err != nil {
			if errors.Is(err, subscriber.ErrDuplicateID) {
				respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
				return
			}
			respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "registering subscriber"})
			return
		}

		respondJSON(w, http.StatusCreated, toSubscriberResponse(sub))
	})
}

// postTestForward handles POST /admin/test-forward/{subscriberID}
func postTestForward(dispatcher *webhook.Dispatcher, registry *subscriber.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "subscriberID")
		sub, ok := registry.Get(id)
		if !ok {
			respondJSON(w, http.StatusNotFound, errorResponse{
				Error: fmt.Sprintf("subscriber not found: %s", id),
			})
			return
		}

		outcome := dispatcher.TestForward(r.Context(), sub)
		writeOutcome(w, outcome)
	})
}
