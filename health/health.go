package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
)

const (
	// probeReference is the dummy payment reference used for reachability
	// probes. Subscribers are expected to answer it like any unknown
	// reference; any HTTP response at all proves the endpoint is up.
	probeReference = "healthcheck"

	probeTimeout = 5 * time.Second
)

// Report is the snapshot served by the health endpoint. The dispatcher
// itself is stateless, so its own status is a constant and the interesting
// part is per-subscriber reachability.
type Report struct {
	Status      string             `json:"status"`
	Subscribers []SubscriberHealth `json:"subscribers"`
	CheckedAt   time.Time          `json:"checked_at"`
}

type SubscriberHealth struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Reachable bool   `json:"reachable"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Checker probes subscriber verification endpoints for reachability.
// Probes never gate dispatch traffic; they exist for operators.
type Checker struct {
	client *http.Client
	logger *slog.Logger
}

func NewChecker(client *http.Client, logger *slog.Logger) *Checker {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		client: client,
		logger: logger.With("component", "health"),
	}
}

// Check probes every subscriber concurrently, disabled ones included, and
// reports each with its enabled flag so operators can tell a dead target
// from a deliberately disabled one.
func (c *Checker) Check(ctx context.Context, subs []subscriber.Subscriber) Report {
	report := Report{
		Status:      "ok",
		Subscribers: make([]SubscriberHealth, len(subs)),
		CheckedAt:   time.Now().UTC(),
	}

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub subscriber.Subscriber) {
			defer wg.Done()
			report.Subscribers[i] = c.probe(ctx, sub)
		}(i, sub)
	}
	wg.Wait()

	return report
}

func (c *Checker) probe(ctx context.Context, sub subscriber.Subscriber) SubscriberHealth {
	entry := SubscriberHealth{ID: sub.ID, Name: sub.Name, Enabled: sub.Enabled}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sub.VerifyURL(probeReference), nil)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("subscriber unreachable", "subscriber", sub.ID, "error", err)
		entry.Error = err.Error()
		return entry
	}
	resp.Body.Close()

	entry.Reachable = true
	entry.Status = resp.StatusCode
	return entry
}
