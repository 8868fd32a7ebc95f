package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook/signature"
)

/* Dispatcher runs an inbound event through the full pipeline: signature
 * verification, reference extraction, concurrent ownership resolution and a
 * single forward. Each event is handled synchronously and independently;
 * nothing about it is persisted.
 */
type Dispatcher struct {
	registry  *subscriber.Registry
	resolver  *Resolver
	forwarder *Forwarder
	secret    string
	metrics   Recorder
	logger    *slog.Logger
}

func NewDispatcher(registry *subscriber.Registry, resolver *Resolver, forwarder *Forwarder, secret string, metrics Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  registry,
		resolver:  resolver,
		forwarder: forwarder,
		secret:    secret,
		metrics:   metrics,
		logger:    logger.With("component", "dispatcher"),
	}
}

// Dispatch processes one raw provider event. It always returns a terminal
// outcome; unexpected panics inside the pipeline surface as the errored
// state rather than crashing the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte, providedSignature string) (outcome DispatchOutcome) {
	outcome = DispatchOutcome{
		EventID: uuid.New().String(),
		State:   Received,
	}
	logger := d.logger.With("event_id", outcome.EventID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch panicked", "panic", r, "state", outcome.State.String())
			outcome.State = Errored
			outcome.Err = fmt.Errorf("processing event: %v", r)
		}
		d.record(ctx, outcome, logger)
	}()

	outcome.State = Verifying
	if err := signature.Verify(raw, providedSignature, d.secret); err != nil {
		outcome.State = Rejected
		outcome.Err = err
		return outcome
	}

	event, err := ParseEvent(raw)
	if err != nil {
		outcome.State = Rejected
		outcome.Err = err
		return outcome
	}
	event.Signature = providedSignature
	outcome.Reference = event.Reference
	logger = logger.With("reference", event.Reference, "event_type", event.Type)
	logger.Debug("event verified")

	outcome.State = Resolving
	resolveStart := time.Now()
	sub := d.resolver.Resolve(ctx, event.Reference, d.registry.Snapshot())
	outcome.ResolveDuration = time.Since(resolveStart)
	if sub == nil {
		outcome.State = NotFound
		outcome.Err = fmt.Errorf("%w: %s", ErrNoSubscriber, event.Reference)
		return outcome
	}
	outcome.Subscriber = sub
	logger = logger.With("subscriber", sub.ID)
	logger.Debug("owner resolved", "resolve_ms", outcome.ResolveDuration.Milliseconds())

	outcome.State = Forwarding
	result := d.forwarder.Forward(ctx, *sub, event, outcome.EventID)
	outcome.ForwardDuration = result.Duration
	outcome.DownstreamStatus = result.Status
	outcome.DownstreamBody = result.Body
	if !result.Success {
		outcome.State = ForwardFailed
		outcome.Err = result.Err
		return outcome
	}

	outcome.State = Forwarded
	return outcome
}

// TestForward synthesizes a signed sample event and forwards it to the given
// subscriber directly, skipping resolution. It exercises the exact headers
// and payload shape of a real forward.
func (d *Dispatcher) TestForward(ctx context.Context, sub subscriber.Subscriber) (outcome DispatchOutcome) {
	outcome = DispatchOutcome{
		EventID:    uuid.New().String(),
		State:      Forwarding,
		Subscriber: &sub,
	}
	logger := d.logger.With("event_id", outcome.EventID, "subscriber", sub.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("test forward panicked", "panic", r)
			outcome.State = Errored
			outcome.Err = fmt.Errorf("processing test event: %v", r)
		}
		d.record(ctx, outcome, logger)
	}()

	raw := sampleEvent()
	event, err := ParseEvent(raw)
	if err != nil {
		outcome.State = Errored
		outcome.Err = fmt.Errorf("building test event: %w", err)
		return outcome
	}
	event.Signature = signature.Compute(raw, d.secret)
	outcome.Reference = event.Reference

	result := d.forwarder.Forward(ctx, sub, event, outcome.EventID)
	outcome.ForwardDuration = result.Duration
	outcome.DownstreamStatus = result.Status
	outcome.DownstreamBody = result.Body
	if !result.Success {
		outcome.State = ForwardFailed
		outcome.Err = result.Err
		return outcome
	}

	outcome.State = Forwarded
	return outcome
}

func (d *Dispatcher) record(ctx context.Context, outcome DispatchOutcome, logger *slog.Logger) {
	if d.metrics != nil {
		d.metrics.RecordDispatch(ctx, outcome)
	}

	attrs := []any{
		"state", outcome.State.String(),
		"resolve_ms", outcome.ResolveDuration.Milliseconds(),
		"forward_ms", outcome.ForwardDuration.Milliseconds(),
	}
	if outcome.DownstreamStatus != 0 {
		attrs = append(attrs, "downstream_status", outcome.DownstreamStatus)
	}
	switch outcome.State {
	case Forwarded:
		logger.Info("event dispatched", attrs...)
	case Rejected, NotFound:
		logger.Warn("event not dispatched", append(attrs, "error", outcome.Err)...)
	default:
		logger.Error("event dispatch failed", append(attrs, "error", outcome.Err)...)
	}
}

// sampleEvent builds the payload used by test forwards. The reference is
// unique per call so downstream systems can tell test deliveries apart.
func sampleEvent() []byte {
	return fmt.Appendf(nil,
		`{"event":"charge.success","data":{"reference":"TEST-%s","amount":5000,"currency":"NGN","customer":{"email":"dispatcher-test@example.com"}}}`,
		uuid.New().String())
}
