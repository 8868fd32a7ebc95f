package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KosherKev/centralized-webhook-dispatcher/config"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook/signature"
)

/* HTTP layer DTOs for the dispatch API
 * Separate from the domain outcome to keep the wire contract stable
 */

// dispatchResponse is returned when an event reached its subscriber
type dispatchResponse struct {
	EventID     string          `json:"event_id"`
	Status      string          `json:"status"`
	ForwardedTo string          `json:"forwardedTo"`
	Downstream  json.RawMessage `json:"downstream,omitempty"`
}

// errorResponse is returned for every non-forwarded terminal state
type errorResponse struct {
	EventID   string        `json:"event_id,omitempty"`
	Error     string        `json:"error"`
	Reference string        `json:"reference,omitempty"`
	Details   *errorDetails `json:"details,omitempty"`
}

// errorDetails carries what the downstream said when a forward failed
type errorDetails struct {
	DownstreamStatus int    `json:"downstream_status,omitempty"`
	DownstreamBody   string `json:"downstream_body,omitempty"`
}

// maxEventBody caps inbound provider payloads
const maxEventBody = 1 << 20

// postWebhook handles POST /webhooks/{provider}
func postWebhook(cfg *config.Config, dispatcher *webhook.Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		if provider != cfg.ProviderName {
			respondJSON(w, http.StatusNotFound, errorResponse{
				Error: fmt.Sprintf("unknown provider: %s", provider),
			})
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "reading request body"})
			return
		}
		defer r.Body.Close()

		outcome := dispatcher.Dispatch(r.Context(), body, r.Header.Get(cfg.SignatureHeader))
		writeOutcome(w, outcome)
	})
}

// writeOutcome maps a terminal dispatch outcome onto the wire contract
func writeOutcome(w http.ResponseWriter, outcome webhook.DispatchOutcome) {
	switch outcome.State {
	case webhook.Forwarded:
		response := dispatchResponse{
			EventID:     outcome.EventID,
			Status:      "forwarded",
			ForwardedTo: outcome.Subscriber.Name,
			Downstream:  rawOrQuoted(outcome.DownstreamBody),
		}
		respondJSON(w, http.StatusOK, response)

	case webhook.Rejected:
		respondJSON(w, http.StatusBadRequest, errorResponse{
			EventID: outcome.EventID,
			Error:   rejectionMessage(outcome.Err),
		})

	case webhook.NotFound:
		respondJSON(w, http.StatusNotFound, errorResponse{
			EventID:   outcome.EventID,
			Error:     fmt.Sprintf("no subscriber found for reference %s", outcome.Reference),
			Reference: outcome.Reference,
		})

	default:
		response := errorResponse{
			EventID: outcome.EventID,
			Error:   "failed to forward event",
		}
		if outcome.Err != nil {
			response.Error = outcome.Err.Error()
		}
		if outcome.DownstreamStatus != 0 {
			response.Details = &errorDetails{
				DownstreamStatus: outcome.DownstreamStatus,
				DownstreamBody:   string(outcome.DownstreamBody),
			}
		}
		respondJSON(w, http.StatusInternalServerError, response)
	}
}

// rejectionMessage keeps the rejection reasons distinguishable without
// leaking the expected signature
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, signature.ErrMissing):
		return "missing signature header"
	case errors.Is(err, signature.ErrMismatch):
		return "invalid signature"
	case errors.Is(err, webhook.ErrReferenceMissing):
		return "event carries no payment reference"
	case err != nil:
		return err.Error()
	default:
		return "invalid request"
	}
}

// rawOrQuoted embeds a downstream body verbatim when it is valid JSON and
// as a JSON string otherwise, so the response stays well-formed either way
func rawOrQuoted(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return body
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return quoted
}
