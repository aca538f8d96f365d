package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"option-traderv1/internal/model"
)

const testSecret = "JBSWY3DPEHPK3PXP"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeOK(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "data": json.RawMessage(raw)})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{
		BaseURL:    srv.URL,
		AccountID:  "8012345-01",
		Password:   "pw",
		TOTPSecret: testSecret,
	}, testLogger())
	return c, srv
}

func TestLogin_SetsToken(t *testing.T) {
	var gotTOTP string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotTOTP = body["totp"]
		if body["account_id"] != "8012345-01" {
			t.Errorf("unexpected account_id %q", body["account_id"])
		}
		writeOK(w, map[string]string{"token": "tok-1"})
	})

	c, _ := newTestClient(t, mux)
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.Token() != "tok-1" {
		t.Errorf("expected token tok-1, got %q", c.Token())
	}
	if len(gotTOTP) != 6 {
		t.Errorf("expected 6-digit totp, got %q", gotTOTP)
	}
}

func TestFetchSeries_ParsesBars(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/market/bars", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "201W4270" {
			t.Errorf("unexpected code %q", r.URL.Query().Get("code"))
		}
		if r.URL.Query().Get("count") != "150" {
			t.Errorf("unexpected count %q", r.URL.Query().Get("count"))
		}
		writeOK(w, []barPayload{
			{TS: 1700000000000, Open: 0.20, High: 0.21, Low: 0.19, Close: 0.20},
			{TS: 1700000180000, Open: 0.20, High: 0.22, Low: 0.20, Close: 0.21},
		})
	})

	c, _ := newTestClient(t, mux)
	series, err := c.FetchSeries(context.Background(), "201W4270", 150)
	if err != nil {
		t.Fatalf("fetch series: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(series))
	}
	if series[1].Close != 0.21 {
		t.Errorf("expected last close 0.21, got %v", series[1].Close)
	}
	if !series.Ordered() {
		t.Error("expected ordered series")
	}
	if !series[0].TS.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("unexpected first bar ts: %v", series[0].TS)
	}
}

func TestFetchSeries_EmptyIsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/market/bars", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, []barPayload{})
	})

	c, _ := newTestClient(t, mux)
	_, err := c.FetchSeries(context.Background(), "201W4270", 150)
	if !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDo_ReloginOn401(t *testing.T) {
	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		writeOK(w, map[string]string{"token": "fresh"})
	})
	mux.HandleFunc("/v1/market/price", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "message": "session expired"})
			return
		}
		writeOK(w, map[string]float64{"price": 0.22})
	})

	c, _ := newTestClient(t, mux)
	// stale token forces the 401 path
	c.mu.Lock()
	c.token = "stale"
	c.mu.Unlock()

	price, err := c.FetchPrice(context.Background(), "201W4270")
	if err != nil {
		t.Fatalf("fetch price: %v", err)
	}
	if price != 0.22 {
		t.Errorf("expected 0.22, got %v", price)
	}
	if logins != 1 {
		t.Errorf("expected exactly one re-login, got %d", logins)
	}
}

func TestSubmitOrder_RejectionIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		var req model.OrderRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Side != model.Buy || req.Qty != 2 {
			t.Errorf("unexpected order: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "message": "price outside limit"})
	})

	c, _ := newTestClient(t, mux)
	err := c.SubmitOrder(context.Background(), model.OrderRequest{
		ClientOrderID: "x-1", Code: "201W4270", Side: model.Buy, Qty: 2, LimitPrice: 0.20,
	})
	if err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestFetchUniverse_ParsesChain(t *testing.T) {
	expiry := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/market/options/weekly", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, []optionPayload{
			{Code: "201W4270", Name: "W 427.0 C", Type: "CALL", Strike: 427.0, Expiry: expiry.UnixMilli(), Price: 0.21},
			{Code: "301W4225", Name: "W 422.5 P", Type: "PUT", Strike: 422.5, Expiry: expiry.UnixMilli(), Price: 0.18},
		})
	})

	c, _ := newTestClient(t, mux)
	opts, err := c.FetchUniverse(context.Background())
	if err != nil {
		t.Fatalf("fetch universe: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if opts[0].Type != model.Call || opts[1].Type != model.Put {
		t.Errorf("unexpected option types: %v %v", opts[0].Type, opts[1].Type)
	}
	if !opts[0].Expiry.Equal(expiry) {
		t.Errorf("unexpected expiry: %v", opts[0].Expiry)
	}
}
