package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/agentoven/advisor-desk/internal/config"
	"github.com/agentoven/advisor-desk/internal/telemetry"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, config.TelemetryConfig{Enabled: false}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
}

func TestInit_EnabledWithoutEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, config.TelemetryConfig{Enabled: true}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))
}
