package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Metrics holds the counters recorded along the ingestion path.
type Metrics struct {
	UpdatesReceived   metric.Int64Counter
	DuplicatesSkipped metric.Int64Counter
	MessagesStored    metric.Int64Counter
	RatingsApplied    metric.Int64Counter
	CommandsHandled   metric.Int64Counter
	RepliesSent       metric.Int64Counter
	RepliesFailed     metric.Int64Counter

	provider *sdkmetric.MeterProvider
}

// Setup initializes the Prometheus metrics exporter and registers the
// bot's counters. The scrape endpoint is served by the main router via
// Handler rather than a side port.
func Setup(serviceName string) (*Metrics, error) {
	exp, err := otelprom.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{provider: provider}
	if m.UpdatesReceived, err = meter.Int64Counter("webhook_updates_received_total"); err != nil {
		return nil, err
	}
	if m.DuplicatesSkipped, err = meter.Int64Counter("webhook_duplicates_skipped_total"); err != nil {
		return nil, err
	}
	if m.MessagesStored, err = meter.Int64Counter("messages_stored_total"); err != nil {
		return nil, err
	}
	if m.RatingsApplied, err = meter.Int64Counter("ratings_applied_total"); err != nil {
		return nil, err
	}
	if m.CommandsHandled, err = meter.Int64Counter("commands_handled_total"); err != nil {
		return nil, err
	}
	if m.RepliesSent, err = meter.Int64Counter("command_replies_sent_total"); err != nil {
		return nil, err
	}
	if m.RepliesFailed, err = meter.Int64Counter("command_replies_failed_total"); err != nil {
		return nil, err
	}

	return m, nil
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetupTracing initializes OpenTelemetry tracing with a stdout exporter
// (for demo; replace with OTLP in prod)
func SetupTracing(serviceName string) (func(), error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(nil) }, nil
}
