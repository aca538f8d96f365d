package engine

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"option-traderv1/internal/markethours"
	"option-traderv1/internal/notification"
	"option-traderv1/internal/portfolio"
)

// Scheduler runs the daily housekeeping jobs in KST: the risk counters
// reset at the open and the session summary goes out at the close.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// NewScheduler wires the open/close jobs. Jobs skip holidays themselves
// since cron only understands weekdays.
func NewScheduler(risk *portfolio.RiskManager, pnl *portfolio.PnLTracker, notifier notification.Notifier, log *slog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(markethours.KST))

	// 09:00 KST Mon-Fri: reset the daily loss counter.
	_, err := c.AddFunc("0 9 * * 1-5", func() {
		if !markethours.IsTradingDay(markethours.Now()) {
			return
		}
		risk.ResetDaily()
		log.Info("daily risk counters reset")
	})
	if err != nil {
		return nil, err
	}

	// 15:20 KST Mon-Fri: session summary.
	_, err = c.AddFunc("20 15 * * 1-5", func() {
		now := markethours.Now()
		if !markethours.IsTradingDay(now) {
			return
		}
		trades := 0
		wins := 0
		for _, tr := range pnl.Trades() {
			if tr.ClosedAt.In(markethours.KST).YearDay() != now.YearDay() {
				continue
			}
			trades++
			if tr.PnL > 0 {
				wins++
			}
		}
		daily := pnl.Daily()
		log.Info("session closed", "trades", trades, "wins", wins, "daily_pnl", daily)
		if notifier != nil {
			_ = notifier.Send(context.Background(), notification.SessionSummary(trades, wins, daily))
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling; running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
