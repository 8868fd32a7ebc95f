package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook"
)

// Exporter provides OpenTelemetry metrics export in Prometheus format.
// It implements webhook.Recorder so the dispatcher can report terminal
// outcomes without depending on the metrics SDK.
type Exporter struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter

	dispatchCount   metric.Int64Counter
	resolveDuration metric.Float64Histogram
	forwardDuration metric.Float64Histogram
	subscriberGauge metric.Int64ObservableGauge
}

// NewExporter creates an exporter backed by a Prometheus reader and registers
// it as the global meter provider. The registry feeds the subscriber gauge.
func NewExporter(registry *subscriber.Registry) (*Exporter, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	e, err := newExporter(meterProvider, registry)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func newExporter(meterProvider *sdkmetric.MeterProvider, registry *subscriber.Registry) (*Exporter, error) {
	meter := meterProvider.Meter(
		"centralized-webhook-dispatcher",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	e := &Exporter{
		meterProvider: meterProvider,
		meter:         meter,
	}
	if err := e.registerInstruments(registry); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}
	return e, nil
}

func (e *Exporter) registerInstruments(registry *subscriber.Registry) error {
	var err error

	e.dispatchCount, err = e.meter.Int64Counter(
		"webhook.dispatch.count",
		metric.WithDescription("Number of dispatched events by terminal state"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatch counter: %w", err)
	}

	e.resolveDuration, err = e.meter.Float64Histogram(
		"webhook.dispatch.resolve.duration",
		metric.WithDescription("Time spent resolving the owning subscriber"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("creating resolve duration histogram: %w", err)
	}

	e.forwardDuration, err = e.meter.Float64Histogram(
		"webhook.dispatch.forward.duration",
		metric.WithDescription("Time spent forwarding the event to its subscriber"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("creating forward duration histogram: %w", err)
	}

	e.subscriberGauge, err = e.meter.Int64ObservableGauge(
		"webhook.subscribers.registered",
		metric.WithDescription("Number of registered subscribers by enabled flag"),
		metric.WithUnit("{subscribers}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			var enabled, disabled int64
			for _, sub := range registry.Snapshot() {
				if sub.Enabled {
					enabled++
				} else {
					disabled++
				}
			}
			observer.Observe(enabled, metric.WithAttributes(
				attribute.Bool("subscriber.enabled", true),
			))
			observer.Observe(disabled, metric.WithAttributes(
				attribute.Bool("subscriber.enabled", false),
			))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("creating subscriber gauge: %w", err)
	}

	return nil
}

// RecordDispatch implements webhook.Recorder
func (e *Exporter) RecordDispatch(ctx context.Context, outcome webhook.DispatchOutcome) {
	e.dispatchCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dispatch.state", outcome.State.String()),
	))

	if outcome.ResolveDuration > 0 {
		e.resolveDuration.Record(ctx, millis(outcome.ResolveDuration))
	}
	if outcome.ForwardDuration > 0 {
		attrs := []attribute.KeyValue{
			attribute.Bool("forward.success", outcome.State == webhook.Forwarded),
		}
		if outcome.Subscriber != nil {
			attrs = append(attrs, attribute.String("subscriber.id", outcome.Subscriber.ID))
		}
		e.forwardDuration.Record(ctx, millis(outcome.ForwardDuration), metric.WithAttributes(attrs...))
	}
}

// Handler serves the Prometheus-formatted scrape endpoint
func (e *Exporter) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.meterProvider != nil {
		return e.meterProvider.Shutdown(ctx)
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
