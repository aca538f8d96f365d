package engine

import (
	"testing"

	"option-traderv1/internal/notification"
	"option-traderv1/internal/portfolio"
)

func TestScheduler_StartStop(t *testing.T) {
	log := testLogger()
	book := portfolio.NewBook()
	pnl := portfolio.NewPnLTracker()
	risk := portfolio.NewRiskManager(portfolio.DefaultLimits(), book, pnl)

	s, err := NewScheduler(risk, pnl, notification.NewLogNotifier(log), log)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	s.Start()
	s.Stop()
}
