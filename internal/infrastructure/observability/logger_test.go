package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	t.Run("without a span", func(t *testing.T) {
		buf.Reset()
		LoggerFromContext(context.Background()).Info().Msg("plain")

		assert.Contains(t, buf.String(), `"message":"plain"`)
		assert.NotContains(t, buf.String(), "trace_id")
	})

	t.Run("with a span", func(t *testing.T) {
		buf.Reset()
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{0x01, 0x02, 0x03},
			SpanID:     trace.SpanID{0x0a},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		LoggerFromContext(ctx).Info().Msg("traced")

		assert.Contains(t, buf.String(), `"trace_id":"`+sc.TraceID().String()+`"`)
		assert.Contains(t, buf.String(), `"span_id":"`+sc.SpanID().String()+`"`)
	})
}
