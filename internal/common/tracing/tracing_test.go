// Package tracing 提供 OpenTelemetry 分布式追踪单元测试
package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	tr, err := Init(&Config{ServiceName: "portal-test"})
	require.NoError(t, err)
	assert.Nil(t, tr.provider)

	ctx, span := tr.StartSpan(context.Background(), "noop", WithResource("news"))
	assert.False(t, span.IsRecording())
	span.End()
	SetError(ctx, errors.New("ignored"))

	assert.NotNil(t, otel.GetTextMapPropagator())
}

func TestInit_StdoutExporter(t *testing.T) {
	tr, err := Init(&Config{ServiceName: "portal-test", Enabled: true, SampleRate: 1})
	require.NoError(t, err)
	require.NotNil(t, tr.provider)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), "upstream GET /news", WithSessionID("s-1"))
	assert.True(t, span.IsRecording())
	span.End()
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestGetTracer_Lazy(t *testing.T) {
	defaultTracer = nil
	assert.NotNil(t, GetTracer())
}
