package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records session lifecycle and email dispatch timing through
// an OpenTelemetry meter exported on the Prometheus registry. The zero value
// and a nil receiver are no-ops.
type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	sessionCounter   otelmetric.Int64Counter
	dispatchDuration otelmetric.Float64Histogram
}

// New builds the meter. reg may be nil for the default registerer.
func New(serviceName string, reg promclient.Registerer) (*Observability, error) {
	opts := []prometheus.Option{}
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
	}
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	sessionCounter, err := meter.Int64Counter(
		"wizard.sessions",
		otelmetric.WithDescription("Wizard session lifecycle events"),
	)
	if err != nil {
		return &Observability{}, err
	}

	dispatchDuration, err := meter.Float64Histogram(
		"email.dispatch.duration",
		otelmetric.WithDescription("Email dispatch duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return &Observability{}, err
	}

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		sessionCounter:   sessionCounter,
		dispatchDuration: dispatchDuration,
	}, nil
}

// RecordSession counts one lifecycle event: created, expired, closed.
func (o *Observability) RecordSession(ctx context.Context, event string) {
	if o == nil || o.sessionCounter == nil {
		return
	}
	o.sessionCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("event", event),
	))
}

func (o *Observability) RecordDispatch(ctx context.Context, duration time.Duration, provider, outcome string) {
	if o == nil || o.dispatchDuration == nil {
		return
	}
	o.dispatchDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
