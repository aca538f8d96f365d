// Package notification delivers trading alerts (entries, exits, exhausted
// orders, session events) to external channels.
package notification

import (
	"context"
	"fmt"
	"log/slog"
)

// Level represents alert severity.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Alert is one notification.
type Alert struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// Entry builds the alert for a filled entry.
func Entry(code string, price float64, qty int) Alert {
	return Alert{
		Level:   LevelInfo,
		Title:   "Position opened",
		Message: fmt.Sprintf("%s: bought %d @ %.2f", code, qty, price),
	}
}

// Exit builds the alert for a filled exit.
func Exit(code string, price float64, qty int, pnl float64, reason string) Alert {
	level := LevelInfo
	if pnl < 0 {
		level = LevelWarning
	}
	return Alert{
		Level:   level,
		Title:   "Position closed",
		Message: fmt.Sprintf("%s: sold %d @ %.2f, P&L %+.2f (%s)", code, qty, price, pnl, reason),
	}
}

// Exhausted builds the alert for an order ladder that never filled.
func Exhausted(code, side string, attempts int) Alert {
	return Alert{
		Level:   LevelWarning,
		Title:   "Order exhausted",
		Message: fmt.Sprintf("%s: %s gave up after %d attempts", code, side, attempts),
	}
}

// SessionSummary builds the end-of-day alert.
func SessionSummary(trades, wins int, dailyPnL float64) Alert {
	level := LevelInfo
	if dailyPnL < 0 {
		level = LevelWarning
	}
	return Alert{
		Level:   level,
		Title:   "Session summary",
		Message: fmt.Sprintf("%d trades, %d wins, daily P&L %+.2f", trades, wins, dailyPnL),
	}
}

// LogNotifier writes alerts to the structured log (useful for development
// and paper trading).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.Info("alert", "level", string(alert.Level), "title", alert.Title, "message", alert.Message)
	return nil
}
