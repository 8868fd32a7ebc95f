package subscriber_test

import (
	"testing"
	"time"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubscriber() subscriber.Subscriber {
	return subscriber.Subscriber{
		ID:          "cbs-ticketing",
		Name:        "CBS Ticketing",
		BaseURL:     "https://tickets.example.com",
		WebhookPath: "/api/webhooks/paystack",
		VerifyPath:  "/api/tickets/verify/%s",
		Enabled:     true,
		Timeout:     5 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	t.Run("success - valid subscriber", func(t *testing.T) {
		s := validSubscriber()
		assert.NoError(t, s.Validate())
	})

	t.Run("error - missing id", func(t *testing.T) {
		s := validSubscriber()
		s.ID = ""
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id cannot be empty")
	})

	t.Run("error - missing name", func(t *testing.T) {
		s := validSubscriber()
		s.Name = ""
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("error - missing base_url", func(t *testing.T) {
		s := validSubscriber()
		s.BaseURL = ""
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url cannot be empty")
	})

	t.Run("error - relative base_url", func(t *testing.T) {
		s := validSubscriber()
		s.BaseURL = "tickets.example.com"
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "absolute http(s) URL")
	})

	t.Run("error - non-http scheme", func(t *testing.T) {
		s := validSubscriber()
		s.BaseURL = "ftp://tickets.example.com"
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "absolute http(s) URL")
	})

	t.Run("error - verify_path without placeholder", func(t *testing.T) {
		s := validSubscriber()
		s.VerifyPath = "/api/tickets/verify/"
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one %s placeholder")
	})

	t.Run("error - verify_path with two placeholders", func(t *testing.T) {
		s := validSubscriber()
		s.VerifyPath = "/api/%s/verify/%s"
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one %s placeholder")
	})

	t.Run("error - webhook_path without leading slash", func(t *testing.T) {
		s := validSubscriber()
		s.WebhookPath = "api/webhooks"
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook_path must start with /")
	})

	t.Run("error - negative timeout", func(t *testing.T) {
		s := validSubscriber()
		s.Timeout = -time.Second
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout cannot be negative")
	})
}

func TestNormalize(t *testing.T) {
	t.Run("fills defaulted paths", func(t *testing.T) {
		s := subscriber.Subscriber{ID: "a", Name: "A", BaseURL: "http://a.example.com"}
		s.Normalize()
		assert.Equal(t, subscriber.DefaultWebhookPath, s.WebhookPath)
		assert.Equal(t, subscriber.DefaultVerifyPath, s.VerifyPath)
	})

	t.Run("keeps explicit paths", func(t *testing.T) {
		s := validSubscriber()
		s.WebhookPath = "/hooks/custom"
		s.Normalize()
		assert.Equal(t, "/hooks/custom", s.WebhookPath)
	})
}

func TestURLBuilding(t *testing.T) {
	t.Run("verify URL", func(t *testing.T) {
		s := validSubscriber()
		assert.Equal(t, "https://tickets.example.com/api/tickets/verify/REF-1", s.VerifyURL("REF-1"))
	})

	t.Run("verify URL escapes the reference", func(t *testing.T) {
		s := validSubscriber()
		assert.Equal(t, "https://tickets.example.com/api/tickets/verify/REF%2F1", s.VerifyURL("REF/1"))
	})

	t.Run("webhook URL", func(t *testing.T) {
		s := validSubscriber()
		assert.Equal(t, "https://tickets.example.com/api/webhooks/paystack", s.WebhookURL())
	})

	t.Run("trailing slash on base URL is tolerated", func(t *testing.T) {
		s := validSubscriber()
		s.BaseURL = "https://tickets.example.com/"
		assert.Equal(t, "https://tickets.example.com/api/webhooks/paystack", s.WebhookURL())
		assert.Equal(t, "https://tickets.example.com/api/tickets/verify/REF-1", s.VerifyURL("REF-1"))
	})
}

func TestEffectiveTimeout(t *testing.T) {
	t.Run("configured timeout wins", func(t *testing.T) {
		s := validSubscriber()
		s.Timeout = 2 * time.Second
		assert.Equal(t, 2*time.Second, s.EffectiveTimeout(30*time.Second))
	})

	t.Run("zero falls back to phase default", func(t *testing.T) {
		s := validSubscriber()
		s.Timeout = 0
		assert.Equal(t, 30*time.Second, s.EffectiveTimeout(30*time.Second))
	})
}
