package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"option-traderv1/internal/model"
	"option-traderv1/internal/ringbuf"
)

const (
	heartbeatInterval = 10 * time.Second
	reconnectDelay    = 5 * time.Second
	maxReconnects     = 10
)

// Stream is the WebSocket quote feed from the broker bridge. Incoming
// ticks land in an SPSC ring buffer; the consumer drains it at its own
// pace and full-buffer drops are counted by the ring.
type Stream struct {
	client *Client
	dialer *websocket.Dialer
	ring   *ringbuf.Ring
	log    *slog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribed map[string]struct{}
}

// NewStream creates a quote stream that pushes into ring.
func NewStream(client *Client, ring *ringbuf.Ring, log *slog.Logger) *Stream {
	return &Stream{
		client:     client,
		dialer:     websocket.DefaultDialer,
		ring:       ring,
		log:        log,
		subscribed: make(map[string]struct{}),
	}
}

// wsURL derives the stream endpoint from the client's base URL.
func (s *Stream) wsURL() string {
	u := s.client.baseURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/v1/stream"
}

// Connect dials the stream with the current session token.
func (s *Stream) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.client.Token())

	conn, resp, err := s.dialer.DialContext(ctx, s.wsURL(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("bridge stream: dial: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("bridge stream: dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(3 * heartbeatInterval))
	})

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.log.Info("quote stream connected", "url", s.wsURL())
	return s.resubscribe()
}

// Subscribe registers instrument codes for live quotes. Codes survive
// reconnects.
func (s *Stream) Subscribe(codes ...string) error {
	s.mu.Lock()
	for _, c := range codes {
		s.subscribed[c] = struct{}{}
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil // sent on Connect
	}
	return s.writeSubscribe(conn, codes)
}

// Unsubscribe removes codes from the live set.
func (s *Stream) Unsubscribe(codes ...string) error {
	s.mu.Lock()
	for _, c := range codes {
		delete(s.subscribed, c)
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.WriteJSON(map[string]any{"action": "unsubscribe", "codes": codes})
}

func (s *Stream) resubscribe() error {
	s.mu.Lock()
	codes := make([]string, 0, len(s.subscribed))
	for c := range s.subscribed {
		codes = append(codes, c)
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil || len(codes) == 0 {
		return nil
	}
	return s.writeSubscribe(conn, codes)
}

func (s *Stream) writeSubscribe(conn *websocket.Conn, codes []string) error {
	return conn.WriteJSON(map[string]any{"action": "subscribe", "codes": codes})
}

// Run reads quote frames until ctx is cancelled, reconnecting with a
// bounded retry count on read failures.
func (s *Stream) Run(ctx context.Context) error {
	retries := 0
	for {
		err := s.readLoop(ctx)
		if ctx.Err() != nil {
			s.close()
			return ctx.Err()
		}

		retries++
		if retries > maxReconnects {
			return fmt.Errorf("bridge stream: gave up after %d reconnects: %w", maxReconnects, err)
		}
		s.log.Warn("quote stream dropped, reconnecting", "attempt", retries, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}

		if err := s.Connect(ctx); err != nil {
			s.log.Warn("quote stream reconnect failed", "attempt", retries, "err", err)
			continue
		}
		retries = 0
	}
}

func (s *Stream) readLoop(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bridge stream: not connected")
	}

	// Heartbeat keeps the bridge from reaping idle sessions.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(3 * heartbeatInterval))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(3 * heartbeatInterval))

		var q model.QuoteUpdate
		if err := json.Unmarshal(msg, &q); err != nil {
			s.log.Warn("quote stream: bad frame", "err", err)
			continue
		}
		if q.Code == "" {
			continue // control frame
		}
		s.ring.Push(q)
	}
}

func (s *Stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
	}
}
