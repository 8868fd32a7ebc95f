package webhook

import (
	"context"
	"time"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
)

/* DispatchOutcome is produced once per inbound event and returned to the
 * HTTP layer. It is never persisted.
 */
type DispatchOutcome struct {
	// EventID correlates the response, logs and forwarded request
	EventID string

	// State is the terminal dispatch state
	State State

	// Reference is the payment reference extracted from the event, when reached
	Reference string

	// Subscriber is the matched target, nil unless resolution succeeded
	Subscriber *subscriber.Subscriber

	// DownstreamStatus is the HTTP status returned by the forward target, 0 if none
	DownstreamStatus int

	// DownstreamBody is the response body returned by the forward target
	DownstreamBody []byte

	// Err carries the failure detail for non-success terminal states
	Err error

	// ResolveDuration is the elapsed time of the resolution phase
	ResolveDuration time.Duration

	// ForwardDuration is the elapsed time of the forwarding phase
	ForwardDuration time.Duration
}

// ForwardResult classifies a single forward attempt. Any downstream response
// with a status below 500 counts as a completed forward; the caller decides
// what to do with the downstream status.
type ForwardResult struct {
	Success  bool
	Status   int
	Body     []byte
	Err      error
	Duration time.Duration
}

// Recorder receives terminal dispatch outcomes for instrumentation.
// Implementations must not block the dispatch flow.
type Recorder interface {
	RecordDispatch(ctx context.Context, outcome DispatchOutcome)
}
