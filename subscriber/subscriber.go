package subscriber

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

/* Subscriber represents a downstream service registered to receive
 * forwarded payment webhooks. Uses value semantics as it represents data,
 * not behavior: registry snapshots hand out copies that are never mutated.
 */

const (
	// DefaultWebhookPath is the relay path used when a subscriber does not set one
	DefaultWebhookPath = "/api/webhooks/paystack"

	// DefaultVerifyPath is the reference verification path template.
	// It must contain a single %s placeholder for the payment reference.
	DefaultVerifyPath = "/api/tickets/verify/%s"
)

type Subscriber struct {
	// ID is the unique, stable identifier used for admin operations and routing
	ID string

	// Name is the human-readable display name surfaced in dispatch responses
	Name string

	// BaseURL is the subscriber's base network address, e.g. "https://tickets.example.com"
	BaseURL string

	// WebhookPath is the path webhooks are relayed to, appended to BaseURL
	WebhookPath string

	// VerifyPath is the reference verification path template with one %s placeholder
	VerifyPath string

	// Enabled excludes the subscriber from resolution when false
	Enabled bool

	// Timeout bounds each outbound call to this subscriber.
	// Zero means "use the phase default" (5s for lookups, 30s for forwards).
	Timeout time.Duration
}

// Normalize fills in defaulted fields. Called by the loader and the admin
// append path so both sources produce equivalent subscribers.
func (s *Subscriber) Normalize() {
	if s.WebhookPath == "" {
		s.WebhookPath = DefaultWebhookPath
	}
	if s.VerifyPath == "" {
		s.VerifyPath = DefaultVerifyPath
	}
}

// Validate checks that the subscriber is well-formed
func (s *Subscriber) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("subscriber id cannot be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("name cannot be empty for subscriber %s", s.ID)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty for subscriber %s", s.ID)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base_url for subscriber %s: %w", s.ID, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL for subscriber %s (got %s)", s.ID, s.BaseURL)
	}
	if !strings.HasPrefix(s.WebhookPath, "/") {
		return fmt.Errorf("webhook_path must start with / for subscriber %s", s.ID)
	}
	if !strings.HasPrefix(s.VerifyPath, "/") {
		return fmt.Errorf("verify_path must start with / for subscriber %s", s.ID)
	}
	if strings.Count(s.VerifyPath, "%s") != 1 {
		return fmt.Errorf("verify_path must contain exactly one %%s placeholder for subscriber %s", s.ID)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative for subscriber %s", s.ID)
	}
	return nil
}

// VerifyURL builds the reference verification URL for this subscriber
func (s *Subscriber) VerifyURL(reference string) string {
	path := fmt.Sprintf(s.VerifyPath, url.PathEscape(reference))
	return strings.TrimSuffix(s.BaseURL, "/") + path
}

// WebhookURL builds the webhook relay URL for this subscriber
func (s *Subscriber) WebhookURL() string {
	return strings.TrimSuffix(s.BaseURL, "/") + s.WebhookPath
}

// EffectiveTimeout returns the subscriber's configured timeout, or fallback
// when none is set. Resolution and forwarding pass their own phase defaults.
func (s *Subscriber) EffectiveTimeout(fallback time.Duration) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return fallback
}
