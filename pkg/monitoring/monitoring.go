package monitoring

import (
	"context"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/membertown/mt-allocation/pkg/applogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

type OpenTelemetry struct {
	serviceName string
	environment string
	projectID   string
	provider    *sdktrace.TracerProvider
}

func NewOpenTelemetry(serviceName, environment, projectID string) *OpenTelemetry {
	return &OpenTelemetry{
		serviceName: serviceName,
		environment: environment,
		projectID:   projectID,
	}
}

func (m *OpenTelemetry) Start(ctx context.Context) {
	logger := applogger.GetLogrus()

	exporter, err := texporter.New(texporter.WithProjectID(m.projectID))
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("unable to create trace exporter")
		return
	}

	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(m.serviceName),
			attribute.String("environment", m.environment),
		),
	)

	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(m.provider)
}

func (m *OpenTelemetry) Stop(ctx context.Context) {
	if m.provider == nil {
		return
	}

	if err := m.provider.Shutdown(ctx); err != nil {
		applogger.GetLogrus().WithContext(ctx).WithError(err).Error()
	}
}
