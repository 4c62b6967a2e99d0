// Package notify delivers human-readable summaries of terminal pipeline
// events. Delivery is best-effort everywhere: a failed notification is
// logged and swallowed, never surfaced to the pipeline.
package notify

import "log/slog"

// Notifier accepts a title and message pair.
type Notifier interface {
	Notify(title, message string)
}

// Console logs notifications through slog; it is always enabled.
type Console struct{}

func (Console) Notify(title, message string) {
	slog.Info("notification",
		slog.String("title", title),
		slog.String("message", message),
	)
}

// Fanout delivers to every configured channel.
type Fanout []Notifier

func (f Fanout) Notify(title, message string) {
	for _, n := range f {
		n.Notify(title, message)
	}
}
