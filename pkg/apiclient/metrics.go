package apiclient

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/oko-market/oko-client/pkg/apiclient"

type meters struct {
	requests  metric.Int64Counter
	refreshes metric.Int64Counter
	logouts   metric.Int64Counter
	duration  metric.Int64Histogram
}

func newMeters() (*meters, error) {
	meter := otel.Meter(instrumentationName, metric.WithInstrumentationVersion(otel.Version()))

	requests, err := meter.Int64Counter(
		"oko.client.requests",
		metric.WithDescription("Outgoing API request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	refreshes, err := meter.Int64Counter(
		"oko.client.token_refreshes",
		metric.WithDescription("Access token refresh attempts by outcome"),
		metric.WithUnit("refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh counter: %w", err)
	}

	logouts, err := meter.Int64Counter(
		"oko.client.logouts",
		metric.WithDescription("Sessions terminated after an unrecoverable auth failure"),
		metric.WithUnit("logout"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating logout counter: %w", err)
	}

	duration, err := meter.Int64Histogram(
		"oko.client.request.duration",
		metric.WithDescription("Outgoing request duration including refresh and retry"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &meters{
		requests:  requests,
		refreshes: refreshes,
		logouts:   logouts,
		duration:  duration,
	}, nil
}

func (m *meters) recordRequest(ctx context.Context, method string, status int) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status_class", statusClass(status)),
	))
}

func (m *meters) recordDuration(ctx context.Context, method string, d time.Duration) {
	m.duration.Record(ctx, d.Milliseconds(), metric.WithAttributes(attribute.String("method", method)))
}

func (m *meters) recordRefresh(ctx context.Context, outcome string) {
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func statusClass(status int) string {
	if status == 0 {
		return "error"
	}

	return fmt.Sprintf("%dxx", status/100)
}
