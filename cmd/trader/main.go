// Command trader runs the weekly-option trading engine: it scans the chain
// for candidates, then cycles the squeeze strategy over them during the KRX
// session, routing orders through the broker bridge (or a paper gateway).
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"option-traderv1/config"
	"option-traderv1/internal/engine"
	"option-traderv1/internal/execution"
	"option-traderv1/internal/logger"
	"option-traderv1/internal/markethours"
	"option-traderv1/internal/metrics"
	"option-traderv1/internal/model"
	"option-traderv1/internal/notification"
	"option-traderv1/internal/portfolio"
	"option-traderv1/internal/ringbuf"
	"option-traderv1/internal/scanner"
	"option-traderv1/internal/sizing"
	redisstore "option-traderv1/internal/store/redis"
	"option-traderv1/internal/strategy"
	"option-traderv1/pkg/bridge"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[trader] config: %v", err)
	}

	slogger := logger.Init("trader", logger.ParseLevel(cfg.LogLevel))
	slogger.Info("starting", "paper", cfg.PaperMode, "cycle", cfg.CycleInterval.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, slogger)
	metricsSrv.Start()

	// ---- Broker bridge session ----
	if cfg.BridgeURL == "" {
		log.Fatal("[trader] BRIDGE_URL is required (market data comes from the bridge even in paper mode)")
	}
	client := bridge.New(bridge.Config{
		BaseURL:    cfg.BridgeURL,
		AccountID:  cfg.AccountID,
		Password:   cfg.AccountPassword,
		TOTPSecret: cfg.TOTPSecret,
	}, slogger)
	if err := client.Login(ctx); err != nil {
		log.Fatalf("[trader] bridge login failed: %v", err)
	}
	health.SetBridgeConnected(true)
	defer client.Logout(context.Background())

	// ---- Trade journal ----
	os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755)
	journal, err := execution.NewJournal(cfg.JournalPath, slogger)
	if err != nil {
		log.Fatalf("[trader] journal init failed: %v", err)
	}
	defer journal.Close()
	health.SetJournalOK(true)

	// ---- Redis publisher (optional) ----
	var publisher *redisstore.Publisher
	if cfg.RedisAddr != "" {
		publisher, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, slogger)
		if err != nil {
			slogger.Warn("redis unavailable, monitoring disabled", "err", err)
		} else {
			health.SetRedisConnected(true)
			defer publisher.Close()
		}
	}

	// ---- Notifications ----
	var notifier notification.Notifier = notification.NewLogNotifier(slogger)
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, slogger)
	}

	// ---- Candidate scan ----
	codes, err := scanCandidates(ctx, client, cfg.Scanner, slogger)
	if err != nil {
		log.Fatalf("[trader] option scan failed: %v", err)
	}
	if len(codes) == 0 {
		log.Fatal("[trader] no tradable candidates found")
	}
	prom.TrackedOptions.Set(float64(len(codes)))

	// ---- Order gateway ----
	var gateway model.OrderGateway = client
	if cfg.PaperMode {
		slogger.Info("paper mode: orders stay local")
		gateway = execution.NewPaperGateway(5, slogger)
	}

	// ---- Core wiring ----
	squeeze, err := strategy.NewSqueeze(cfg.Strategy)
	if err != nil {
		log.Fatalf("[trader] strategy: %v", err)
	}
	smart, err := execution.NewSmart(client, gateway, cfg.Execution, slogger)
	if err != nil {
		log.Fatalf("[trader] execution: %v", err)
	}
	sizer, err := sizing.NewFixed(cfg.FixedLots)
	if err != nil {
		log.Fatalf("[trader] sizing: %v", err)
	}

	book := portfolio.NewBook()
	pnl := portfolio.NewPnLTracker()
	risk := portfolio.NewRiskManager(cfg.Risk, book, pnl)

	// ---- Live quote stream marks open positions between cycles ----
	ring := ringbuf.New(4096)
	stream := bridge.NewStream(client, ring, slogger)
	if err := stream.Connect(ctx); err != nil {
		slogger.Warn("quote stream unavailable, relying on cycle fetches", "err", err)
	} else {
		if err := stream.Subscribe(codes...); err != nil {
			slogger.Warn("quote subscribe failed", "err", err)
		}
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				slogger.Error("quote stream stopped", "err", err)
				health.SetBridgeConnected(false)
			}
		}()
		go drainQuotes(ctx, ring, book, prom)
	}

	// ---- Engine & scheduler ----
	eng := engine.New(engine.Config{
		CycleInterval: cfg.CycleInterval,
		BarCount:      cfg.BarCount,
		EnforceHours:  true,
	}, engine.Deps{
		Market:    client,
		Strategy:  squeeze,
		Executor:  smart,
		Sizer:     sizer,
		Book:      book,
		Risk:      risk,
		PnL:       pnl,
		Journal:   journal,
		Notifier:  notifier,
		Publisher: publisher,
		Metrics:   prom,
		Health:    health,
		Log:       slogger,
	}, codes)

	scheduler, err := engine.NewScheduler(risk, pnl, notifier, slogger)
	if err != nil {
		log.Fatalf("[trader] scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	engDone := make(chan error, 1)
	go func() { engDone <- eng.Run(ctx) }()

	slogger.Info("trader running", "instruments", len(codes), "market", markethours.StatusString(time.Now()))

	select {
	case sig := <-sigCh:
		slogger.Info("shutdown signal", "signal", sig.String())
		cancel()
		<-engDone
	case err := <-engDone:
		if !engine.IsShutdown(err) {
			slogger.Error("engine exited", "err", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Stop(shutdownCtx); err != nil {
		slogger.Warn("metrics server shutdown", "err", err)
	}

	if recent, err := journal.Recent(5); err == nil {
		for _, r := range recent {
			slogger.Info("session fill",
				"code", r.Code, "side", r.Side, "qty", r.Qty,
				"price", r.Price, "reason", r.Reason, "pnl", r.RealizedPnL)
		}
	}
	slogger.Info("trader stopped", "realized_pnl", pnl.Total())
}

// scanCandidates picks the tracked option codes from the weekly chain.
func scanCandidates(ctx context.Context, client *bridge.Client, cfg scanner.Config, slogger *slog.Logger) ([]string, error) {
	underlying, err := client.FetchUnderlying(ctx)
	if err != nil {
		return nil, err
	}
	universe, err := client.FetchUniverse(ctx)
	if err != nil {
		return nil, err
	}

	picked := scanner.Select(universe, underlying, cfg)
	codes := make([]string, len(picked))
	for i, o := range picked {
		codes[i] = o.Code
		slogger.Info("tracking option",
			"code", o.Code, "type", string(o.Type), "strike", o.Strike, "price", o.Price)
	}
	return codes, nil
}

// drainQuotes moves streamed ticks from the ring buffer into the book so
// the monitoring snapshot stays current between cycles.
func drainQuotes(ctx context.Context, ring *ringbuf.Ring, book *portfolio.Book, prom *metrics.Metrics) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var reportedDrops uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				q, ok := ring.Pop()
				if !ok {
					break
				}
				if q.Last > 0 {
					book.MarkPrice(q.Code, q.Last)
				}
			}
			if drops := ring.Overflow(); drops > reportedDrops {
				prom.QuoteDrops.Add(float64(drops - reportedDrops))
				reportedDrops = drops
			}
		}
	}
}
