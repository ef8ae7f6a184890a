package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func resetGlobalConfig() {
	globalConfig = nil
	configOnce = sync.Once{}
}

func TestInit_Disabled(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("OTEL_ENABLED", "")

	shutdown, err := Init(context.Background())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.False(t, Enabled())
}

func TestInitWithConfig_Nil(t *testing.T) {
	shutdown, err := InitWithConfig(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestGetConfig(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("OTEL_SERVICE_NAME", "test-service")

	assert.Equal(t, "test-service", GetConfig().ServiceName)
	resetGlobalConfig()
}

func TestCreateSampler(t *testing.T) {
	for _, s := range []string{"", "always_on", "always_off", "traceidratio", "parentbased_always_on", "parentbased_always_off", "parentbased_traceidratio"} {
		assert.NotNil(t, createSampler(&Config{Sampler: s, SamplerArg: "0.5"}), s)
	}
	assert.Contains(t, createSampler(&Config{Sampler: "always_off"}).Description(), "AlwaysOff")
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"", 1.0},
		{"0.5", 0.5},
		{"0", 0},
		{"invalid", 1.0},
		{"-0.5", 0},
		{"1.5", 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseRatio(tt.input), "input %q", tt.input)
	}
}

func TestSplitEndpoint(t *testing.T) {
	host, plain := splitEndpoint("http://localhost:4318")
	assert.Equal(t, "localhost:4318", host)
	assert.True(t, plain)

	host, plain = splitEndpoint("https://collector:4317")
	assert.Equal(t, "collector:4317", host)
	assert.False(t, plain)
}

func TestEndSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	EndSpan(span, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
}
