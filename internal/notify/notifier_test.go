package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

type recordingSender struct {
	name   string
	titles []string
	bodies []string
	err    error
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.titles = append(s.titles, title)
	s.bodies = append(s.bodies, message)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func testNotifier(senders []Sender, min domain.AlertLevel) *Notifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotifier(senders, min, logger)
}

func TestNotifyAlertsFiltersBelowMinLevel(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := testNotifier([]Sender{sender}, domain.AlertCritical)

	err := n.NotifyAlerts(context.Background(), []domain.Alert{
		{Level: domain.AlertInfo, Metric: "Sharpe Ratio"},
		{Level: domain.AlertWarning, Metric: "Cancel Rate"},
		{Level: domain.AlertCritical, Metric: "VPIN", Message: "Extreme toxic flow", Value: 0.81, Threshold: 0.7},
	})

	require.NoError(t, err)
	require.Len(t, sender.titles, 1)
	assert.Equal(t, "[CRITICAL] VPIN", sender.titles[0])
	assert.Contains(t, sender.bodies[0], "Extreme toxic flow")
	assert.Contains(t, sender.bodies[0], "value=0.8100")
	assert.Contains(t, sender.bodies[0], "threshold=0.7000")
}

func TestNotifyAlertsFansOutToAllSenders(t *testing.T) {
	a := &recordingSender{name: "telegram"}
	b := &recordingSender{name: "discord"}
	n := testNotifier([]Sender{a, b}, domain.AlertWarning)

	err := n.NotifyAlerts(context.Background(), []domain.Alert{
		{Level: domain.AlertWarning, Metric: "Utilization"},
	})

	require.NoError(t, err)
	assert.Len(t, a.titles, 1)
	assert.Len(t, b.titles, 1)
}

func TestNotifyAlertsFailingSenderDoesNotBlockOthers(t *testing.T) {
	bad := &recordingSender{name: "telegram", err: errors.New("bad gateway")}
	good := &recordingSender{name: "discord"}
	n := testNotifier([]Sender{bad, good}, domain.AlertWarning)

	err := n.NotifyAlerts(context.Background(), []domain.Alert{
		{Level: domain.AlertCritical, Metric: "Liquidation Risk"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Len(t, good.titles, 1, "healthy sender must still deliver")
}

func TestNotifyAlertsNoSendersIsNoop(t *testing.T) {
	n := testNotifier(nil, domain.AlertCritical)

	err := n.NotifyAlerts(context.Background(), []domain.Alert{
		{Level: domain.AlertCritical, Metric: "VPIN"},
	})

	assert.NoError(t, err)
}
