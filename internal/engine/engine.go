// Package engine runs the trading loop: every cycle it refreshes bars and
// prices for each tracked option, asks the strategy for a decision, and
// routes entries and exits through the execution ladder. Instruments are
// evaluated concurrently within a cycle; everything for one instrument
// happens on a single goroutine, so per-instrument order is total.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"option-traderv1/internal/execution"
	"option-traderv1/internal/logger"
	"option-traderv1/internal/markethours"
	"option-traderv1/internal/metrics"
	"option-traderv1/internal/model"
	"option-traderv1/internal/notification"
	"option-traderv1/internal/portfolio"
	redisstore "option-traderv1/internal/store/redis"
	"option-traderv1/internal/strategy"
)

// Config bounds the loop.
type Config struct {
	CycleInterval time.Duration // bar interval, 3m in production
	BarCount      int           // bars fetched per evaluation
	EnforceHours  bool          // gate cycles on the KST session window
}

// DefaultConfig mirrors the production loop: one cycle per 3-minute bar,
// 150 bars of history, session gating on.
func DefaultConfig() Config {
	return Config{
		CycleInterval: 3 * time.Minute,
		BarCount:      150,
		EnforceHours:  true,
	}
}

// Deps are the collaborators the engine drives. Publisher may be nil
// (monitoring disabled); everything else is required.
type Deps struct {
	Market    model.MarketData
	Strategy  *strategy.Squeeze
	Executor  *execution.Smart
	Sizer     model.Sizer
	Book      *portfolio.Book
	Risk      *portfolio.RiskManager
	PnL       *portfolio.PnLTracker
	Journal   *execution.Journal
	Notifier  notification.Notifier
	Publisher *redisstore.Publisher
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Log       *slog.Logger
}

// Engine owns the cycle loop over a fixed set of tracked instruments.
type Engine struct {
	cfg   Config
	deps  Deps
	codes []string

	now func() time.Time // injectable clock
}

// New creates an engine for the given instrument codes.
func New(cfg Config, deps Deps, codes []string) *Engine {
	return &Engine{cfg: cfg, deps: deps, codes: codes, now: time.Now}
}

// Run executes cycles until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.deps.Log.Info("engine started",
		"instruments", len(e.codes),
		"cycle", e.cfg.CycleInterval.String(),
		"bars", e.cfg.BarCount)

	for {
		now := e.now()
		if e.cfg.EnforceHours && !markethours.IsMarketOpen(now) {
			e.setMarketState(false)
			e.deps.Log.Info("market closed", "status", markethours.StatusString(now))
			if err := e.sleep(ctx, e.idleWait(now)); err != nil {
				return err
			}
			continue
		}
		e.setMarketState(true)

		e.RunCycle(ctx)

		if err := e.sleep(ctx, e.cfg.CycleInterval); err != nil {
			return err
		}
	}
}

// idleWait returns how long to sleep while the market is closed: until the
// next open when that is near, otherwise a cycle at a time so shutdown and
// clock changes are noticed promptly.
func (e *Engine) idleWait(now time.Time) time.Duration {
	until := markethours.TimeUntilOpen(now)
	if until > 0 && until < e.cfg.CycleInterval {
		return until
	}
	return e.cfg.CycleInterval
}

// RunCycle evaluates every tracked instrument once, concurrently, then
// publishes the cycle summary.
func (e *Engine) RunCycle(ctx context.Context) {
	start := e.now()

	var wg sync.WaitGroup
	for _, code := range e.codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			e.evaluate(ctx, code)
		}(code)
	}
	wg.Wait()

	e.publishSummary(ctx)

	if m := e.deps.Metrics; m != nil {
		m.CyclesTotal.Inc()
		m.CycleDur.Observe(e.now().Sub(start).Seconds())
	}
	if e.deps.Health != nil {
		e.deps.Health.SetLastCycleAt(e.now())
	}
}

// evaluate runs one instrument through fetch, decide, and execute. The
// whole pass is bounded to one cycle so a hung collaborator cannot stall
// the next bar.
func (e *Engine) evaluate(ctx context.Context, code string) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CycleInterval)
	defer cancel()
	ctx = logger.WithTraceID(ctx, logger.NewTraceID(code, e.now()))
	log := e.deps.Log.With("code", code, "trace_id", logger.TraceID(ctx))

	series, err := e.deps.Market.FetchSeries(ctx, code, e.cfg.BarCount)
	if err != nil {
		e.countFetchError()
		log.Warn("series fetch failed, skipping cycle", "err", err)
		return
	}
	if !series.Ordered() {
		e.countFetchError()
		log.Warn("series timestamps out of order, skipping cycle")
		return
	}

	price, err := e.deps.Market.FetchPrice(ctx, code)
	if err != nil || price <= 0 {
		e.countFetchError()
		log.Warn("price fetch failed, skipping cycle", "err", err)
		return
	}

	pos := e.deps.Book.Get(code)
	sig := e.deps.Strategy.Evaluate(code, series, price, pos)
	if m := e.deps.Metrics; m != nil {
		m.SignalsTotal.WithLabelValues(string(sig.Action)).Inc()
	}

	switch sig.Action {
	case strategy.ActionBuy:
		e.enter(ctx, log, sig)
	case strategy.ActionSell:
		e.exit(ctx, log, sig, pos)
	default:
		if pos != nil {
			e.deps.Book.MarkPrice(code, price)
		}
	}
}

// enter runs the BUY path: risk gate, sizing, ladder, then book the fill.
func (e *Engine) enter(ctx context.Context, log *slog.Logger, sig strategy.Signal) {
	qty := e.deps.Sizer.Quantity(sig.Price)
	if qty < 1 {
		log.Info("entry skipped, sizer returned zero", "price", sig.Price)
		return
	}
	if ok, reason := e.deps.Risk.CanEnter(sig.Code, sig.Price, qty); !ok {
		log.Info("entry blocked by risk limit", "reason", reason)
		return
	}

	log.Info("entry signal", "reason", string(sig.Reason), "price", sig.Price, "qty", qty, "detail", sig.Detail)
	e.publishSignal(ctx, sig)

	res, err := e.deps.Executor.Execute(ctx, sig.Code, model.Buy, qty)
	if err != nil {
		log.Error("entry execution failed", "err", err)
		return
	}
	e.countOrder(model.Buy, res)
	if !res.Filled() {
		log.Warn("entry exhausted", "attempts", res.Attempts)
		e.notify(ctx, notification.Exhausted(sig.Code, string(model.Buy), res.Attempts))
		return
	}

	if err := e.deps.Book.Open(sig.Code, res.Price, qty, e.now()); err != nil {
		log.Error("booking entry failed", "err", err)
		return
	}
	log.Info("position opened", "price", res.Price, "qty", qty, "attempts", res.Attempts)

	e.journal(log, execution.TradeRecord{
		OrderID:  res.OrderID,
		Code:     sig.Code,
		Side:     string(model.Buy),
		Qty:      qty,
		Price:    res.Price,
		Reason:   string(sig.Reason),
		Attempts: res.Attempts,
	})
	e.publishFill(ctx, res, sig.Code, model.Buy, qty)
	e.notify(ctx, notification.Entry(sig.Code, res.Price, qty))
}

// exit runs the SELL path for the full position quantity.
func (e *Engine) exit(ctx context.Context, log *slog.Logger, sig strategy.Signal, pos *model.Position) {
	if pos == nil {
		log.Error("exit signal without a position")
		return
	}

	log.Info("exit signal", "reason", string(sig.Reason), "price", sig.Price, "qty", pos.Qty, "detail", sig.Detail)
	e.publishSignal(ctx, sig)

	res, err := e.deps.Executor.Execute(ctx, sig.Code, model.Sell, pos.Qty)
	if err != nil {
		log.Error("exit execution failed", "err", err)
		return
	}
	e.countOrder(model.Sell, res)
	if !res.Filled() {
		// Still holding; the next cycle re-evaluates and tries again.
		log.Warn("exit exhausted, position kept", "attempts", res.Attempts)
		e.notify(ctx, notification.Exhausted(sig.Code, string(model.Sell), res.Attempts))
		return
	}

	pnl, err := e.deps.Book.Close(sig.Code, res.Price)
	if err != nil {
		log.Error("booking exit failed", "err", err)
		return
	}
	log.Info("position closed", "price", res.Price, "pnl", pnl, "attempts", res.Attempts)

	e.deps.PnL.Record(portfolio.ClosedTrade{
		Code:     sig.Code,
		Qty:      pos.Qty,
		Entry:    pos.EntryPrice,
		Exit:     res.Price,
		PnL:      pnl,
		Reason:   string(sig.Reason),
		ClosedAt: e.now(),
	})
	e.journal(log, execution.TradeRecord{
		OrderID:     res.OrderID,
		Code:        sig.Code,
		Side:        string(model.Sell),
		Qty:         pos.Qty,
		Price:       res.Price,
		Reason:      string(sig.Reason),
		Attempts:    res.Attempts,
		RealizedPnL: pnl,
	})
	e.publishFill(ctx, res, sig.Code, model.Sell, pos.Qty)
	e.notify(ctx, notification.Exit(sig.Code, res.Price, pos.Qty, pnl, string(sig.Reason)))
}

func (e *Engine) publishSummary(ctx context.Context) {
	positions := e.deps.Book.Snapshot()
	unrealized := e.deps.Book.TotalUnrealizedPnL()
	realized := e.deps.PnL.Total()

	if m := e.deps.Metrics; m != nil {
		m.OpenPositions.Set(float64(len(positions)))
		m.UnrealizedPnL.Set(unrealized)
		m.RealizedPnL.Set(realized)
	}

	e.deps.Publisher.PublishSummary(ctx, redisstore.Summary{
		OpenPositions: len(positions),
		UnrealizedPnL: unrealized,
		RealizedPnL:   realized,
		MarketOpen:    markethours.IsMarketOpen(e.now()),
		TS:            e.now().UnixMilli(),
	}, positions)
}

func (e *Engine) publishSignal(ctx context.Context, sig strategy.Signal) {
	e.deps.Publisher.PublishSignal(ctx, redisstore.SignalEvent{
		Code:   sig.Code,
		Action: string(sig.Action),
		Reason: string(sig.Reason),
		Price:  sig.Price,
		TS:     e.now().UnixMilli(),
	})
}

func (e *Engine) publishFill(ctx context.Context, res execution.Result, code string, side model.Side, qty int) {
	e.deps.Publisher.PublishFill(ctx, redisstore.FillEvent{
		OrderID:  res.OrderID,
		Code:     code,
		Side:     string(side),
		Qty:      qty,
		Price:    res.Price,
		Attempts: res.Attempts,
		TS:       e.now().UnixMilli(),
	})
}

func (e *Engine) journal(log *slog.Logger, rec execution.TradeRecord) {
	if e.deps.Journal == nil {
		return
	}
	if err := e.deps.Journal.Record(rec); err != nil {
		log.Error("journal write failed", "err", err)
		if e.deps.Health != nil {
			e.deps.Health.SetJournalOK(false)
		}
	}
}

func (e *Engine) notify(ctx context.Context, alert notification.Alert) {
	if e.deps.Notifier == nil {
		return
	}
	if err := e.deps.Notifier.Send(ctx, alert); err != nil {
		e.deps.Log.Warn("notification failed", "title", alert.Title, "err", err)
	}
}

func (e *Engine) countOrder(side model.Side, res execution.Result) {
	if m := e.deps.Metrics; m != nil {
		m.OrdersTotal.WithLabelValues(string(side), string(res.Status)).Inc()
		m.OrderAttempts.Observe(float64(res.Attempts))
	}
}

func (e *Engine) countFetchError() {
	if m := e.deps.Metrics; m != nil {
		m.DataFetchErrors.Inc()
	}
}

func (e *Engine) setMarketState(open bool) {
	if m := e.deps.Metrics; m != nil {
		if open {
			m.MarketState.Set(1)
		} else {
			m.MarketState.Set(0)
		}
	}
}

// sleep waits for d or until ctx is cancelled.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsShutdown reports whether the error from Run was a clean cancellation.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
