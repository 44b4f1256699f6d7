package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    logrus.Level
		wantErr bool
	}{
		{name: "info text", level: "info", format: "text", want: logrus.InfoLevel},
		{name: "debug json", level: "debug", format: "json", want: logrus.DebugLevel},
		{name: "default format", level: "warn", format: "", want: logrus.WarnLevel},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(tt.level, tt.format, &bytes.Buffer{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNewLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("info", FormatJSON, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.WithField("guid", "com.example.a").Info("loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "com.example.a", entry["guid"])
	assert.Equal(t, "info", entry["level"])
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("info", FormatJSON, &buf)
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), log)
	ctx = WithRunID(ctx, "run-1")
	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Same(t, log, GetLogger(ctx))

	FromContext(ctx).Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestFromContext_Defaults(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRunID(ctx))
	assert.Same(t, logrus.StandardLogger(), GetLogger(ctx))
}

func TestWithTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	entry := WithTraceContext(ctx, logrus.NewEntry(logrus.New()))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry.Data["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry.Data["span_id"])
}

func TestWithTraceContext_EndedSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()
	require.False(t, span.IsRecording())

	entry := WithTraceContext(ctx, logrus.NewEntry(logrus.New()))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry.Data["trace_id"])
}
