// Package alert maps published metrics onto threshold alerts and keeps the
// bounded in-memory alert log. Evaluation is a pure function with no
// suppression or hysteresis: a condition that holds re-triggers every cycle.
package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

// Thresholds are the alert trigger levels. All comparisons are strict
// greater-than except Sharpe, which triggers on strictly-less-than.
type Thresholds struct {
	VPINWarning              float64
	VPINCritical             float64
	PhantomLiquidityWarning  float64
	PhantomLiquidityCritical float64
	LiquidationRiskWarning   float64
	LiquidationRiskCritical  float64
	MaxDrawdownWarning       float64
	MaxDrawdownCritical      float64
	UtilizationWarning       float64
	ConcentrationWarning     float64
	CancelRateWarning        float64
	FleetingRatioWarning     float64
	SharpeInfo               float64
}

// DefaultThresholds returns the standard trigger levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VPINWarning:              0.5,
		VPINCritical:             0.7,
		PhantomLiquidityWarning:  0.4,
		PhantomLiquidityCritical: 0.6,
		LiquidationRiskWarning:   0.7,
		LiquidationRiskCritical:  0.85,
		MaxDrawdownWarning:       0.15,
		MaxDrawdownCritical:      0.25,
		UtilizationWarning:       0.9,
		ConcentrationWarning:     0.15,
		CancelRateWarning:        0.5,
		FleetingRatioWarning:     0.2,
		SharpeInfo:               1.0,
	}
}

// Evaluate checks every monitored metric against the thresholds and returns
// at most one alert per metric. Critical is checked before warning, so a
// metric never yields both in the same cycle.
func Evaluate(m domain.GlobalMetrics, t Thresholds) []domain.Alert {
	var alerts []domain.Alert

	if m.Risk.VPINScore > t.VPINCritical {
		alerts = append(alerts, newAlert(domain.AlertCritical, "VPIN",
			fmt.Sprintf("Extreme toxic flow detected: %.3f", m.Risk.VPINScore),
			m.Risk.VPINScore, t.VPINCritical))
	} else if m.Risk.VPINScore > t.VPINWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "VPIN",
			fmt.Sprintf("High toxic flow detected: %.3f", m.Risk.VPINScore),
			m.Risk.VPINScore, t.VPINWarning))
	}

	if m.Risk.PhantomLiquidityIndex > t.PhantomLiquidityCritical {
		alerts = append(alerts, newAlert(domain.AlertCritical, "Phantom Liquidity",
			fmt.Sprintf("Severely compromised liquidity: %.1f%%", m.Risk.PhantomLiquidityIndex*100),
			m.Risk.PhantomLiquidityIndex, t.PhantomLiquidityCritical))
	} else if m.Risk.PhantomLiquidityIndex > t.PhantomLiquidityWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "Phantom Liquidity",
			fmt.Sprintf("Significant phantom liquidity: %.1f%%", m.Risk.PhantomLiquidityIndex*100),
			m.Risk.PhantomLiquidityIndex, t.PhantomLiquidityWarning))
	}

	if m.Risk.LiquidationRisk > t.LiquidationRiskCritical {
		alerts = append(alerts, newAlert(domain.AlertCritical, "Liquidation Risk",
			fmt.Sprintf("Critical liquidation risk: %.2f", m.Risk.LiquidationRisk),
			m.Risk.LiquidationRisk, t.LiquidationRiskCritical))
	} else if m.Risk.LiquidationRisk > t.LiquidationRiskWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "Liquidation Risk",
			fmt.Sprintf("Elevated liquidation risk: %.2f", m.Risk.LiquidationRisk),
			m.Risk.LiquidationRisk, t.LiquidationRiskWarning))
	}

	if m.Risk.MaxDrawdown > t.MaxDrawdownCritical {
		alerts = append(alerts, newAlert(domain.AlertCritical, "Max Drawdown",
			fmt.Sprintf("Excessive drawdown: %.1f%%", m.Risk.MaxDrawdown*100),
			m.Risk.MaxDrawdown, t.MaxDrawdownCritical))
	} else if m.Risk.MaxDrawdown > t.MaxDrawdownWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "Max Drawdown",
			fmt.Sprintf("High drawdown: %.1f%%", m.Risk.MaxDrawdown*100),
			m.Risk.MaxDrawdown, t.MaxDrawdownWarning))
	}

	if m.Vault.UtilizationRate > t.UtilizationWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "Utilization",
			fmt.Sprintf("High capital utilization: %.1f%%", m.Vault.UtilizationRate*100),
			m.Vault.UtilizationRate, t.UtilizationWarning))
	}

	maxConcentration := 0.0
	for _, c := range m.Risk.PositionConcentration {
		if c > maxConcentration {
			maxConcentration = c
		}
	}
	if maxConcentration > t.ConcentrationWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "Position Concentration",
			fmt.Sprintf("High position concentration: %.1f%%", maxConcentration*100),
			maxConcentration, t.ConcentrationWarning))
	}

	if m.Liquidity.CancelRate > t.CancelRateWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "Cancel Rate",
			fmt.Sprintf("High order cancel rate: %.1f%%", m.Liquidity.CancelRate*100),
			m.Liquidity.CancelRate, t.CancelRateWarning))
	}

	if m.Liquidity.FleetingOrderRatio > t.FleetingRatioWarning {
		alerts = append(alerts, newAlert(domain.AlertWarning, "Fleeting Orders",
			fmt.Sprintf("High fleeting order ratio: %.1f%%", m.Liquidity.FleetingOrderRatio*100),
			m.Liquidity.FleetingOrderRatio, t.FleetingRatioWarning))
	}

	if m.Performance.SharpeRatio < t.SharpeInfo {
		alerts = append(alerts, newAlert(domain.AlertInfo, "Sharpe Ratio",
			fmt.Sprintf("Low Sharpe ratio: %.2f", m.Performance.SharpeRatio),
			m.Performance.SharpeRatio, t.SharpeInfo))
	}

	return alerts
}

func newAlert(level domain.AlertLevel, metric, message string, value, threshold float64) domain.Alert {
	return domain.Alert{
		ID:        uuid.NewString(),
		Level:     level,
		Metric:    metric,
		Message:   message,
		Value:     value,
		Threshold: threshold,
		Time:      time.Now().UTC(),
	}
}
