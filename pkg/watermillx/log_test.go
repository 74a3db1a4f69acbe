package watermillx

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: LevelTrace}))
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(newBufferLogger(&buf), slog.LevelInfo)

	l.Trace("trace message", nil)
	l.Debug("debug message", nil)
	assert.Empty(t, buf.String())

	l.Info("subscribing", watermill.LogFields{"topic": "events_authcode"})
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "topic=events_authcode")

	buf.Reset()
	l.Error("handler failed", errors.New("boom"), nil)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestSlogAdapter_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(newBufferLogger(&buf), LevelTrace)

	l.Trace("message received", watermill.LogFields{"uuid": "1"})
	assert.Contains(t, buf.String(), "message received")
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(newBufferLogger(&buf), slog.LevelInfo).
		With(watermill.LogFields{"handler": "MailOnNotificationRequested"})

	l.Info("started", nil)
	assert.Contains(t, buf.String(), "handler=MailOnNotificationRequested")
}

func TestSlogAdapter_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSlogAdapter(nil, slog.LevelError).Info("ignored", nil)
	})
}
