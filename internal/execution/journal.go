package execution

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// TradeRecord is one journaled fill.
type TradeRecord struct {
	ID          int64   `json:"id"`
	OrderID     string  `json:"order_id"`
	Code        string  `json:"code"`
	Side        string  `json:"side"`
	Qty         int     `json:"qty"`
	Price       float64 `json:"price"`
	Reason      string  `json:"reason"`
	Attempts    int     `json:"attempts"`
	RealizedPnL float64 `json:"realized_pnl"` // 0 on entries
	FilledAt    string  `json:"filled_at"`    // RFC3339
}

// Journal persists fills to SQLite for analysis and the end-of-day summary.
type Journal struct {
	mu  sync.Mutex
	db  *sql.DB
	log *slog.Logger
}

// NewJournal opens (or creates) the journal database.
func NewJournal(dbPath string, log *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id      TEXT NOT NULL,
		code          TEXT NOT NULL,
		side          TEXT NOT NULL,
		qty           INTEGER NOT NULL,
		price         REAL NOT NULL,
		reason        TEXT,
		attempts      INTEGER DEFAULT 1,
		realized_pnl  REAL DEFAULT 0,
		filled_at     DATETIME NOT NULL,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fills_code ON fills(code);
	CREATE INDEX IF NOT EXISTS idx_fills_filled_at ON fills(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("trade journal opened", "path", dbPath)
	return &Journal{db: db, log: log}, nil
}

// Record persists one fill.
func (j *Journal) Record(rec TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	filledAt := rec.FilledAt
	if filledAt == "" {
		filledAt = time.Now().Format(time.RFC3339)
	}
	_, err := j.db.Exec(
		`INSERT INTO fills (order_id, code, side, qty, price, reason, attempts, realized_pnl, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OrderID, rec.Code, rec.Side, rec.Qty, rec.Price,
		rec.Reason, rec.Attempts, rec.RealizedPnL, filledAt,
	)
	return err
}

// Recent returns the last N fills, newest first.
func (j *Journal) Recent(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, order_id, code, side, qty, price, reason, attempts, realized_pnl, filled_at
		 FROM fills ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var r TradeRecord
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Code, &r.Side, &r.Qty,
			&r.Price, &r.Reason, &r.Attempts, &r.RealizedPnL, &r.FilledAt); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
