package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
)

const (
	// DefaultResolveTimeout bounds a single ownership lookup when the
	// subscriber does not carry its own timeout.
	DefaultResolveTimeout = 5 * time.Second

	// maxVerifyBody caps how much of a verification response is read when
	// probing for a ticket object.
	maxVerifyBody = 1 << 20
)

/* Resolver determines which subscriber owns a payment reference by querying
 * every enabled subscriber's verification endpoint concurrently. A lookup
 * failure on one subscriber never aborts the others; it only removes that
 * subscriber from consideration for the event at hand.
 */
type Resolver struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewResolver(client *http.Client, timeout time.Duration, logger *slog.Logger) *Resolver {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve queries all enabled subscribers for the reference and returns the
// single owner, or nil when no subscriber confirms it. All lookups run to
// completion before a winner is chosen; ties break on registration order.
func (r *Resolver) Resolve(ctx context.Context, reference string, subs []subscriber.Subscriber) *subscriber.Subscriber {
	enabled := make([]subscriber.Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.Enabled {
			enabled = append(enabled, sub)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	confirmed := make([]bool, len(enabled))
	var wg sync.WaitGroup
	for i, sub := range enabled {
		wg.Add(1)
		go func(i int, sub subscriber.Subscriber) {
			defer wg.Done()
			confirmed[i] = r.lookup(ctx, sub, reference)
		}(i, sub)
	}
	wg.Wait()

	for i := range enabled {
		if confirmed[i] {
			return &enabled[i]
		}
	}
	return nil
}

// lookup asks one subscriber whether it knows the reference. Ownership is
// confirmed by a 200, or by a 400 whose body still carries a ticket object,
// which some ticketing backends return for references in a non-payable state.
func (r *Resolver) lookup(ctx context.Context, sub subscriber.Subscriber, reference string) bool {
	ctx, cancel := context.WithTimeout(ctx, sub.EffectiveTimeout(r.timeout))
	defer cancel()

	url := sub.VerifyURL(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.logger.Warn("building verification request", "subscriber", sub.ID, "error", err)
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("verification lookup failed", "subscriber", sub.ID, "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true
	case http.StatusBadRequest:
		return hasTicket(resp.Body)
	default:
		return false
	}
}

// hasTicket reports whether a verification response body carries a non-null
// ticket object, either at the top level or nested under data.
func hasTicket(body io.Reader) bool {
	raw, err := io.ReadAll(io.LimitReader(body, maxVerifyBody))
	if err != nil {
		return false
	}

	var envelope struct {
		Ticket json.RawMessage `json:"ticket"`
		Data   struct {
			Ticket json.RawMessage `json:"ticket"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false
	}
	return jsonPresent(envelope.Ticket) || jsonPresent(envelope.Data.Ticket)
}

func jsonPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
