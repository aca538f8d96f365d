// Package bridge is the HTTP/WebSocket client for the local broker bridge
// that fronts the Kiwoom OpenAPI terminal. The bridge exposes a small REST
// surface for session auth, market data, and orders, plus a WebSocket
// stream for live quotes.
//
// Usage:
//
//	c := bridge.New(bridge.Config{BaseURL: "http://localhost:8420", ...}, log)
//	if err := c.Login(ctx); err != nil { ... }
//	series, err := c.FetchSeries(ctx, "201W4270", 150)
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/pquerna/otp/totp"

	"option-traderv1/internal/model"
)

// Config configures the bridge client.
type Config struct {
	BaseURL    string // e.g. "http://localhost:8420"
	AccountID  string
	Password   string
	TOTPSecret string        // base32 secret for the session OTP
	Timeout    time.Duration // default: 7s
}

var routes = map[string]string{
	"auth.login":   "/v1/auth/login",
	"auth.logout":  "/v1/auth/logout",
	"market.bars":  "/v1/market/bars",
	"market.price": "/v1/market/price",
	"market.quote": "/v1/market/quote",
	"market.index": "/v1/market/underlying",
	"market.chain": "/v1/market/options/weekly",
	"order.place":  "/v1/orders",
}

// Client talks to the broker bridge. Safe for concurrent use; the session
// token is refreshed under a mutex when the bridge returns 401.
type Client struct {
	baseURL    string
	accountID  string
	password   string
	totpSecret string
	timeout    time.Duration

	httpClient *http.Client
	log        *slog.Logger

	mu    sync.Mutex
	token string
}

// New creates a bridge client. Call Login before issuing requests.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountID:  cfg.AccountID,
		password:   cfg.Password,
		totpSecret: cfg.TOTPSecret,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Token returns the current session token (for the quote stream).
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// envelope is the bridge's standard response wrapper.
type envelope struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Login generates a fresh TOTP code and opens a session.
func (c *Client) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.totpSecret, time.Now())
	if err != nil {
		return fmt.Errorf("bridge: generate totp: %w", err)
	}

	body, _ := json.Marshal(map[string]string{
		"account_id": c.accountID,
		"password":   c.password,
		"totp":       code,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+routes["auth.login"], bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: login: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("bridge: login response: %w", err)
	}
	if !env.OK {
		return fmt.Errorf("bridge: login failed: %s", env.Message)
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		return fmt.Errorf("bridge: login returned no token")
	}

	c.mu.Lock()
	c.token = data.Token
	c.mu.Unlock()

	c.log.Info("bridge session opened", "account", c.accountID)
	return nil
}

// Logout closes the session. Best effort.
func (c *Client) Logout(ctx context.Context) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "auth.logout", nil, nil, &env); err != nil {
		c.log.Warn("bridge logout", "err", err)
	}
}

// do issues an authenticated request, retrying once with a fresh login if
// the session has expired.
func (c *Client) do(ctx context.Context, method, route string, query url.Values, body any, env *envelope) error {
	path, ok := routes[route]
	if !ok {
		return fmt.Errorf("bridge: unknown route %q", route)
	}

	status, err := c.doOnce(ctx, method, path, query, body, env)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		c.log.Warn("bridge session expired, re-login", "route", route)
		if err := c.Login(ctx); err != nil {
			return err
		}
		status, err = c.doOnce(ctx, method, path, query, body, env)
		if err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("bridge: %s %s: status %d: %s", method, path, status, env.Message)
	}
	if !env.OK {
		return fmt.Errorf("bridge: %s %s: %s", method, path, env.Message)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body any, env *envelope) (int, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bridge: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, env); err != nil {
			return resp.StatusCode, fmt.Errorf("bridge: %s %s: bad response: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// barPayload matches the bridge's bar encoding (unix millis timestamps).
type barPayload struct {
	TS    int64   `json:"ts"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// FetchSeries returns the most recent barCount 3-minute bars, oldest first.
func (c *Client) FetchSeries(ctx context.Context, code string, barCount int) (model.Series, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("count", strconv.Itoa(barCount))
	q.Set("interval", "3m")

	var env envelope
	if err := c.do(ctx, http.MethodGet, "market.bars", q, nil, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}

	var bars []barPayload
	if err := json.Unmarshal(env.Data, &bars); err != nil {
		return nil, fmt.Errorf("bridge: decode bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, model.ErrUnavailable
	}

	series := make(model.Series, len(bars))
	for i, b := range bars {
		series[i] = model.Bar{
			TS:    time.UnixMilli(b.TS),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		}
	}
	return series, nil
}

// FetchPrice returns the last trade price for code.
func (c *Client) FetchPrice(ctx context.Context, code string) (float64, error) {
	q := url.Values{}
	q.Set("code", code)

	var env envelope
	if err := c.do(ctx, http.MethodGet, "market.price", q, nil, &env); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}
	var data struct {
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, fmt.Errorf("bridge: decode price: %w", err)
	}
	return data.Price, nil
}

// FetchQuote returns the top-of-book snapshot for code.
func (c *Client) FetchQuote(ctx context.Context, code string) (model.Quote, error) {
	q := url.Values{}
	q.Set("code", code)

	var env envelope
	if err := c.do(ctx, http.MethodGet, "market.quote", q, nil, &env); err != nil {
		return model.Quote{}, fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}
	var quote model.Quote
	if err := json.Unmarshal(env.Data, &quote); err != nil {
		return model.Quote{}, fmt.Errorf("bridge: decode quote: %w", err)
	}
	return quote, nil
}

// FetchUnderlying returns the current KOSPI200 index level.
func (c *Client) FetchUnderlying(ctx context.Context) (float64, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "market.index", nil, nil, &env); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}
	var data struct {
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, fmt.Errorf("bridge: decode underlying: %w", err)
	}
	if data.Price <= 0 {
		return 0, model.ErrUnavailable
	}
	return data.Price, nil
}

// optionPayload matches the bridge's option chain encoding.
type optionPayload struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Strike float64 `json:"strike"`
	Expiry int64   `json:"expiry"` // unix millis
	Price  float64 `json:"price"`
}

// FetchUniverse returns the weekly option chain.
func (c *Client) FetchUniverse(ctx context.Context) ([]model.Option, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "market.chain", nil, nil, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}

	var payload []optionPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("bridge: decode option chain: %w", err)
	}

	options := make([]model.Option, 0, len(payload))
	for _, p := range payload {
		options = append(options, model.Option{
			Code:   p.Code,
			Name:   p.Name,
			Type:   model.OptionType(p.Type),
			Strike: p.Strike,
			Expiry: time.UnixMilli(p.Expiry),
			Price:  p.Price,
		})
	}
	return options, nil
}

// SubmitOrder submits a limit order. The bridge voids any live order for
// the same instrument before accepting the new one, so a rejected or
// superseded ladder step cannot fill later.
func (c *Client) SubmitOrder(ctx context.Context, req model.OrderRequest) error {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "order.place", nil, req, &env); err != nil {
		return err
	}
	c.log.Debug("order accepted",
		"order_id", req.ClientOrderID, "code", req.Code,
		"side", string(req.Side), "qty", req.Qty, "limit", req.LimitPrice)
	return nil
}
