package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const meterName = "blackticket-reservation-api"

type metrics struct {
	holdsCreated  metric.Int64Counter
	seatConflicts metric.Int64Counter
	holdsReaped   metric.Int64Counter
}

// newMetrics registers counters against the global meter provider. Before
// InitTelemetry runs (and always in tests) that provider is a no-op.
func newMetrics() metrics {
	meter := otel.Meter(meterName)

	holdsCreated, _ := meter.Int64Counter("reservations.holds.created")
	seatConflicts, _ := meter.Int64Counter("reservations.holds.seat_conflicts")
	holdsReaped, _ := meter.Int64Counter("reservations.holds.reaped")

	return metrics{
		holdsCreated:  holdsCreated,
		seatConflicts: seatConflicts,
		holdsReaped:   holdsReaped,
	}
}

// InitTelemetry initializes the OpenTelemetry metric provider and returns a shutdown function.
func (app *Application) InitTelemetry() (func(context.Context), error) {
	if app.config.OtelCollectorUrl == "" {
		app.logger.Info("OpenTelemetry collector URL not set, skipping initialization")

		return func(context.Context) {}, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(meterName),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(app.config.Env),
		),
	)
	if err != nil {
		return nil, errors.New("failed to create otel resource")
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(app.config.OtelCollectorUrl),
	)
	if err != nil {
		return nil, errors.New("failed to create otel metric exporter")
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
	)

	otel.SetMeterProvider(meterProvider)

	// Counters were created against the no-op provider, rebind them.
	app.metrics = newMetrics()

	shutdown := func(ctx context.Context) {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("failed to shutdown telemetry provider", "error", err)
		}
	}

	return shutdown, nil
}
