package domain

import "time"

// AlertLevel grades alert severity.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

// String returns the level name for logging and display.
func (l AlertLevel) String() string {
	switch l {
	case AlertInfo:
		return "info"
	case AlertWarning:
		return "warning"
	case AlertCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Alert is one threshold crossing produced by the alert evaluator. Alerts
// are immutable once created and carry no identity beyond creation order.
type Alert struct {
	ID        string
	Level     AlertLevel
	Metric    string
	Message   string
	Value     float64
	Threshold float64
	Time      time.Time
}
