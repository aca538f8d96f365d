// Package metrics exposes Prometheus metrics and a health endpoint for the
// option trading engine.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CycleDur        prometheus.Histogram
	SignalsTotal    *prometheus.CounterVec // labels: action
	OrdersTotal     *prometheus.CounterVec // labels: side, status
	OrderAttempts   prometheus.Histogram
	DataFetchErrors prometheus.Counter
	QuoteDrops      prometheus.Counter // ring buffer overflow on the feed path

	OpenPositions  prometheus.Gauge
	UnrealizedPnL  prometheus.Gauge
	RealizedPnL    prometheus.Gauge
	MarketState    prometheus.Gauge // 0=closed, 1=open
	TrackedOptions prometheus.Gauge
}

// New registers and returns all engine metrics.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_cycles_total",
			Help: "Total evaluation cycles run",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle across all instruments",
			Buckets: prometheus.DefBuckets,
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_signals_total",
			Help: "Signals emitted by the strategy",
		}, []string{"action"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Order executions by side and terminal status",
		}, []string{"side", "status"}),
		OrderAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_order_attempts",
			Help:    "Ladder attempts consumed per execution",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		DataFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_data_fetch_errors_total",
			Help: "Market data fetches that failed or returned nothing",
		}),
		QuoteDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_quote_drops_total",
			Help: "Streamed quotes dropped on ring buffer overflow",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Currently open positions",
		}),
		UnrealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_unrealized_pnl",
			Help: "Total unrealized P&L across open positions, price units",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_realized_pnl",
			Help: "Realized P&L since process start, price units",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
		TrackedOptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_tracked_options",
			Help: "Option contracts under evaluation",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDur,
		m.SignalsTotal,
		m.OrdersTotal,
		m.OrderAttempts,
		m.DataFetchErrors,
		m.QuoteDrops,
		m.OpenPositions,
		m.UnrealizedPnL,
		m.RealizedPnL,
		m.MarketState,
		m.TrackedOptions,
	)

	return m
}

// HealthStatus represents engine health for the /healthz probe.
type HealthStatus struct {
	mu sync.RWMutex

	BridgeConnected bool
	JournalOK       bool
	RedisConnected  bool
	LastCycleAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetBridgeConnected(v bool) {
	h.mu.Lock()
	h.BridgeConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetJournalOK(v bool) {
	h.mu.Lock()
	h.JournalOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycleAt(t time.Time) {
	h.mu.Lock()
	h.LastCycleAt = t
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if !h.BridgeConnected || !h.JournalOK {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}

	cycleAge := ""
	if !h.LastCycleAt.IsZero() {
		cycleAge = time.Since(h.LastCycleAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string `json:"status"`
		Uptime          string `json:"uptime"`
		BridgeConnected bool   `json:"bridge_connected"`
		JournalOK       bool   `json:"journal_ok"`
		RedisConnected  bool   `json:"redis_connected"`
		LastCycleAt     string `json:"last_cycle_at"`
		CycleAge        string `json:"cycle_age"`
	}{
		Status:          overall,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		BridgeConnected: h.BridgeConnected,
		JournalOK:       h.JournalOK,
		RedisConnected:  h.RedisConnected,
		LastCycleAt:     h.LastCycleAt.Format(time.RFC3339),
		CycleAge:        cycleAge,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
	log  *slog.Logger
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
		log:  log,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics server failed", "err", err.Error())
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
