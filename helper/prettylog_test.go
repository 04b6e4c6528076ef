package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPrettyHandler(t *testing.T) {
	t.Run("builds a handler with default options", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})

		assert.NotNil(t, handler)
		assert.NotNil(t, handler.Handler)
		assert.NotNil(t, handler.l)
	})
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		level slog.Level
		label string
	}{
		{"debug", slog.LevelDebug, "DEBUG:"},
		{"info", slog.LevelInfo, "INFO:"},
		{"warn", slog.LevelWarn, "WARN:"},
		{"error", slog.LevelError, "ERROR:"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

			record := slog.NewRecord(time.Now(), tc.level, tc.name+" message", 0)
			record.AddAttrs(slog.String("key", "value"))

			assert.NoError(t, handler.Handle(ctx, record))
			out := buf.String()
			assert.Contains(t, out, tc.label)
			assert.Contains(t, out, tc.name+" message")
			assert.Contains(t, out, "key")
			assert.Contains(t, out, "value")
		})
	}

	t.Run("empty attrs render as an empty object", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})
		record := slog.NewRecord(time.Now(), slog.LevelInfo, "bare message", 0)

		assert.NoError(t, handler.Handle(ctx, record))
		assert.Contains(t, buf.String(), "{}")
	})

	t.Run("formats the timestamp in brackets", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})
		record := slog.NewRecord(time.Now(), slog.LevelInfo, "time test", 0)

		assert.NoError(t, handler.Handle(ctx, record))
		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, buf.String())
	})
}
