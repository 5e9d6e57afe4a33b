// Package notify pushes critical risk alerts to external channels. Alerts
// are dispatched to all registered senders (Telegram, Discord); warnings and
// informational alerts stay in the in-process log and on the HTTP surface.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches alerts at or above a minimum level to one or more
// Senders.
type Notifier struct {
	senders  []Sender
	minLevel domain.AlertLevel
	logger   *slog.Logger
}

// NewNotifier creates a Notifier that delivers to the given senders. Only
// alerts at minLevel or above are forwarded.
func NewNotifier(senders []Sender, minLevel domain.AlertLevel, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders:  senders,
		minLevel: minLevel,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// NotifyAlerts forwards the alerts that meet the minimum level, one message
// per alert.
func (n *Notifier) NotifyAlerts(ctx context.Context, alerts []domain.Alert) error {
	var errs []string
	for _, a := range alerts {
		if a.Level < n.minLevel {
			continue
		}
		title := fmt.Sprintf("[%s] %s", strings.ToUpper(a.Level.String()), a.Metric)
		body := fmt.Sprintf("%s\nvalue=%.4f threshold=%.4f", a.Message, a.Value, a.Threshold)
		if err := n.dispatch(ctx, title, body); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(errs, "; "))
	}
	return nil
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a
// single sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
