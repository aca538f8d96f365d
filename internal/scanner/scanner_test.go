package scanner

import (
	"testing"
	"time"

	"option-traderv1/internal/model"
)

func opt(code string, typ model.OptionType, strike, price float64, expiryDays int) model.Option {
	return model.Option{
		Code:   code,
		Type:   typ,
		Strike: strike,
		Price:  price,
		Expiry: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, expiryDays),
	}
}

func TestSelect_PrefersPremiumBand(t *testing.T) {
	universe := []model.Option{
		opt("C355", model.Call, 355, 0.25, 4),
		opt("C360", model.Call, 360, 0.05, 4), // below band
		opt("P345", model.Put, 345, 0.20, 2),  // nearer expiry, should sort first
		opt("C350", model.Call, 350, 0.80, 4), // above band
	}
	got := Select(universe, 350, DefaultConfig())
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Code != "P345" || got[1].Code != "C355" {
		t.Errorf("unexpected ordering: %s, %s", got[0].Code, got[1].Code)
	}
}

func TestSelect_OTMFallback(t *testing.T) {
	// No contract in the band; calls above and puts below the underlying
	// within 2–6 points qualify.
	universe := []model.Option{
		opt("C353", model.Call, 353, 0.50, 4), // 3 points OTM
		opt("C351", model.Call, 351, 0.60, 4), // 1 point, too close
		opt("P344", model.Put, 344, 0.55, 4),  // 6 points OTM
		opt("P349", model.Put, 349, 0.70, 4),  // 1 point, too close
		opt("C365", model.Call, 365, 0.02, 4), // 15 points, too far
	}
	got := Select(universe, 350, DefaultConfig())
	if len(got) != 2 {
		t.Fatalf("expected 2 OTM candidates, got %d: %+v", len(got), got)
	}
	if got[0].Code != "C353" { // closest OTM distance first
		t.Errorf("expected C353 first, got %s", got[0].Code)
	}
	if got[1].Code != "P344" {
		t.Errorf("expected P344 second, got %s", got[1].Code)
	}
}

func TestSelect_NearestExpiryLastResort(t *testing.T) {
	universe := []model.Option{
		opt("B", model.Call, 351, 0.60, 7),
		opt("A", model.Call, 351, 0.60, 2),
	}
	got := Select(universe, 350, DefaultConfig())
	if len(got) != 2 || got[0].Code != "A" {
		t.Errorf("expected nearest expiry first, got %+v", got)
	}
}

func TestSelect_CapsCandidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 3
	var universe []model.Option
	for i := 0; i < 10; i++ {
		universe = append(universe, opt(string(rune('A'+i)), model.Call, 355, 0.20, 4))
	}
	if got := Select(universe, 350, cfg); len(got) != 3 {
		t.Errorf("expected 3 candidates, got %d", len(got))
	}
}

func TestOTMDistance(t *testing.T) {
	if d := OTMDistance(opt("C", model.Call, 355, 0.2, 1), 350); d != 5 {
		t.Errorf("call OTM distance = %v, want 5", d)
	}
	if d := OTMDistance(opt("P", model.Put, 345, 0.2, 1), 350); d != 5 {
		t.Errorf("put OTM distance = %v, want 5", d)
	}
	if d := OTMDistance(opt("C", model.Call, 345, 0.2, 1), 350); d != -5 {
		t.Errorf("ITM call distance = %v, want -5", d)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	bad := DefaultConfig()
	bad.MinPrice = 0.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error for inverted band")
	}
	bad = DefaultConfig()
	bad.OTMMaxDistance = 1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for inverted OTM range")
	}
	bad = DefaultConfig()
	bad.MaxCandidates = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero candidates")
	}
}
