package notify

import (
	"context"
	"log/slog"

	"github.com/nikhilbhutani/speakify/internal/converter"
)

// Logger writes notifications to the structured log.
type Logger struct{}

func (Logger) Notify(ctx context.Context, n converter.Notification) {
	level := slog.LevelInfo
	if n.Kind == converter.NotifyError {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "notification", "kind", n.Kind, "message", n.Message)
}

// Multi delivers to every notifier in order.
type Multi []converter.Notifier

func (m Multi) Notify(ctx context.Context, n converter.Notification) {
	for _, nt := range m {
		nt.Notify(ctx, n)
	}
}
