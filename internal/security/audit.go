package security

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Event captures a security-relevant action such as a login or an OTP check.
type Event struct {
	Kind      string
	ActorID   string
	IP        string
	UserAgent string
	Metadata  map[string]any
	Occurred  time.Time
}

// Recorder persists security events for later analysis.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder writes audit events to a slog.Logger.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder returns a recorder writing to logger (discards when nil).
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LoggerRecorder) Record(ctx context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	r.logger.InfoContext(ctx, "audit event", "kind", event.Kind, "actor_id", event.ActorID, "ip", event.IP, "ua", event.UserAgent, "metadata", event.Metadata, "occurred", event.Occurred.Format(time.RFC3339Nano))
}
