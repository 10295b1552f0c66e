package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/cwrk-planet/chat-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	assert.Equal(t, logger.EnvDev, logger.DetectEnv())

	t.Setenv("APP_ENV", "staging")
	assert.Equal(t, logger.EnvStage, logger.DetectEnv())

	t.Setenv("APP_ENV", "Production")
	assert.Equal(t, logger.EnvProd, logger.DetectEnv())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("nonsense"))
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service: "chat",
		Version: "v0.0.1",
		Env:     logger.EnvDev,
		Backend: logger.BackendStd,
		Level:   slog.LevelDebug,
		Output:  &buf,
	})

	slog.Info("hello world")

	out := buf.String()
	assert.NotContains(t, out, "{", "expected text output, got %s", out)
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "service=chat")
	assert.Contains(t, out, "env=dev")
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service:          "chat",
		Version:          "1.2.3",
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		Level:            slog.LevelInfo,
		SampleInitial:    100000,
		SampleThereafter: 100000,
		Output:           &buf,
	})

	slog.Info("booted", slog.String("k", "v"))
	slog.Debug("filtered out")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, buf.String())

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	assert.Equal(t, "booted", m["msg"])
	assert.Equal(t, "INFO", m["level"])
	assert.Equal(t, "chat", m["service"])
	assert.Equal(t, "prod", m["env"])
	assert.Equal(t, "1.2.3", m["version"])
	assert.Equal(t, "v", m["k"])
}

func TestFromContext_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	base := logger.Init(logger.Config{
		Env:     logger.EnvStage,
		Backend: logger.BackendStd,
		Output:  &buf,
	})

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ctx = logger.WithContext(ctx, base.With("req_id", "r-1"))
	logger.FromContext(ctx).Info("with trace")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), buf.String())
	assert.Equal(t, "with trace", m["msg"])
	assert.Equal(t, "r-1", m["req_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), m["trace_id"])
	assert.NotEmpty(t, m["span_id"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{Env: logger.EnvDev, Backend: logger.BackendStd, Output: &buf})

	logger.FromContext(context.Background()).Warn("plain")
	assert.Contains(t, buf.String(), "plain")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestInitTracing_ProducesValidSpans(t *testing.T) {
	stop := logger.InitTracing()
	t.Cleanup(func() { _ = stop(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
}
