package notify

import (
	"context"
	"log/slog"
	"sync"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

// Multi fans an alert out to every configured notifier.
type Multi []ports.Notifier

var _ ports.Notifier = (Multi)(nil)

// Emit delivers to each notifier in order.
func (m Multi) Emit(ctx context.Context, n domain.Notification) {
	for _, target := range m {
		if target != nil {
			target.Emit(ctx, n)
		}
	}
}

// Log writes alerts to the structured log.
type Log struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Log)(nil)

// NewLog builds a log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "alerts")}
}

// Emit logs the alert at warn level.
func (l *Log) Emit(_ context.Context, n domain.Notification) {
	args := make([]any, 0, 2+2*len(n.Payload))
	args = append(args, "type", string(n.Type))
	for k, v := range n.Payload {
		args = append(args, k, v)
	}
	l.logger.Warn("alert", args...)
}

// Recorder keeps alerts in memory.
type Recorder struct {
	mu    sync.Mutex
	notes []domain.Notification
}

var _ ports.Notifier = (*Recorder)(nil)

// Emit stores n.
func (r *Recorder) Emit(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

// Notifications returns a copy of what was emitted, optionally filtered by
// type.
func (r *Recorder) Notifications(types ...domain.NotificationType) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(types) == 0 {
		return append([]domain.Notification(nil), r.notes...)
	}
	var out []domain.Notification
	for _, n := range r.notes {
		for _, t := range types {
			if n.Type == t {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
