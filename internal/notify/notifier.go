// Package notify defines the fire-and-forget notification boundary.
// Delivery is external; a failed dispatch never fails the transition
// that triggered it.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier delivers timer-expiry notifications to the user.
// Implementations can push, play a sound, or log. Constructed once at
// process start and passed to the timer engine by reference.
type Notifier interface {
	Notify(ctx context.Context, timerID uuid.UUID, label string) error
}

// LogNotifier writes notifications to the structured log. Used as the
// default dispatcher when no push backend is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, timerID uuid.UUID, label string) error {
	n.log.InfoContext(ctx, "timer expired", "timer_id", timerID, "label", label)
	return nil
}

// NoopNotifier drops all notifications. Used in tests.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, timerID uuid.UUID, label string) error {
	return nil
}
