package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
)

const (
	// DefaultForwardTimeout bounds a forward attempt when the subscriber
	// does not carry its own timeout.
	DefaultForwardTimeout = 30 * time.Second

	// maxForwardBody caps how much of the downstream response is relayed
	// back to the provider.
	maxForwardBody = 1 << 20

	userAgent = "centralized-webhook-dispatcher/1.0"
)

/* Forwarder delivers a verified event to exactly one subscriber. The payload
 * is relayed byte for byte so the subscriber can re-verify the provider
 * signature, which is passed through under its original header name.
 */
type Forwarder struct {
	client          *http.Client
	timeout         time.Duration
	signatureHeader string
	logger          *slog.Logger
}

func NewForwarder(client *http.Client, timeout time.Duration, signatureHeader string, logger *slog.Logger) *Forwarder {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		client:          client,
		timeout:         timeout,
		signatureHeader: signatureHeader,
		logger:          logger.With("component", "forwarder"),
	}
}

// Forward posts the raw event body to the subscriber's webhook endpoint.
// A downstream status below 500 is a completed forward; a 5xx or transport
// error is a failed one. No retries are attempted.
func (f *Forwarder) Forward(ctx context.Context, sub subscriber.Subscriber, event InboundEvent, eventID string) ForwardResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, sub.EffectiveTimeout(f.timeout))
	defer cancel()

	url := sub.WebhookURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(event.Raw))
	if err != nil {
		return ForwardResult{
			Err:      fmt.Errorf("building forward request: %w", err),
			Duration: time.Since(start),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", eventID)
	if event.Signature != "" {
		req.Header.Set(f.signatureHeader, event.Signature)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("forward transport error", "subscriber", sub.ID, "url", url, "error", err)
		return ForwardResult{
			Err:      fmt.Errorf("calling subscriber %s: %w", sub.ID, err),
			Duration: time.Since(start),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxForwardBody))
	if err != nil {
		f.logger.Debug("reading forward response", "subscriber", sub.ID, "error", err)
	}

	result := ForwardResult{
		Status:   resp.StatusCode,
		Body:     body,
		Duration: time.Since(start),
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		result.Err = fmt.Errorf("%w: subscriber %s returned status %d", ErrForwardFailed, sub.ID, resp.StatusCode)
		return result
	}
	result.Success = true
	return result
}
