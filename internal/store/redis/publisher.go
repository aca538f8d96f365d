// Package redis publishes trading activity to Redis for external monitors:
// signal and fill streams, a latest-positions snapshot, and a PubSub channel
// with per-cycle summaries.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"option-traderv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: a full session of 3m cycles is ~130 entries,
	// keep a few days worth.
	streamMaxLen     = 2000
	defaultLatestTTL = 30 * time.Minute

	signalStream   = "trader:signals"
	fillStream     = "trader:fills"
	positionsKey   = "trader:positions:latest"
	summaryChannel = "pub:trader:summary"
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes signals, fills, and position snapshots to Redis.
// A nil *Publisher is valid and drops everything, so callers can run
// without Redis configured.
type Publisher struct {
	client *goredis.Client
	log    *slog.Logger
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client {
	if p == nil {
		return nil
	}
	return p.client
}

// New creates a new Publisher and pings the server.
func New(cfg Config, log *slog.Logger) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("redis connected", "addr", cfg.Addr)
	return &Publisher{client: client, log: log}, nil
}

// SignalEvent is the payload written to the signal stream.
type SignalEvent struct {
	Code   string  `json:"code"`
	Action string  `json:"action"`
	Reason string  `json:"reason"`
	Price  float64 `json:"price"`
	TS     int64   `json:"ts"`
}

// FillEvent is the payload written to the fill stream.
type FillEvent struct {
	OrderID  string  `json:"order_id"`
	Code     string  `json:"code"`
	Side     string  `json:"side"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"price"`
	Attempts int     `json:"attempts"`
	TS       int64   `json:"ts"`
}

// Summary is the per-cycle snapshot published to monitors.
type Summary struct {
	OpenPositions int     `json:"open_positions"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
	MarketOpen    bool    `json:"market_open"`
	TS            int64   `json:"ts"`
}

// PublishSignal appends a non-HOLD signal to the signal stream.
func (p *Publisher) PublishSignal(ctx context.Context, ev SignalEvent) {
	if p == nil {
		return
	}
	p.xadd(ctx, signalStream, ev)
}

// PublishFill appends a fill to the fill stream.
func (p *Publisher) PublishFill(ctx context.Context, ev FillEvent) {
	if p == nil {
		return
	}
	p.xadd(ctx, fillStream, ev)
}

// PublishSummary pipelines the cycle summary (PUBLISH) together with the
// latest positions snapshot (SET with TTL) in one roundtrip.
func (p *Publisher) PublishSummary(ctx context.Context, sum Summary, positions []model.Position) {
	if p == nil {
		return
	}

	sumData, err := json.Marshal(sum)
	if err != nil {
		p.log.Warn("redis marshal summary", "err", err)
		return
	}
	posData, err := json.Marshal(positions)
	if err != nil {
		p.log.Warn("redis marshal positions", "err", err)
		return
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, summaryChannel, string(sumData))
	pipe.Set(ctx, positionsKey, string(posData), defaultLatestTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn("redis summary pipeline", "err", err)
	}
}

func (p *Publisher) xadd(ctx context.Context, stream string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Warn("redis marshal", "stream", stream, "err", err)
		return
	}
	err = p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		p.log.Warn("redis XADD", "stream", stream, "err", err)
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
