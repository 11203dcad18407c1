package output

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
)

type SQLiteHandlerConfig struct {
	DBPath string // e.g. "data/records.db"
}

// SQLiteHandler stores records in two tables keyed by event and timestamp.
// A repeated record replaces the earlier row.
type SQLiteHandler struct {
	db            *sql.DB
	candleStmt    *sql.Stmt
	indicatorStmt *sql.Stmt
}

func NewSQLiteHandler(config SQLiteHandlerConfig) (*SQLiteHandler, error) {
	db, err := sql.Open("sqlite3", config.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	h := &SQLiteHandler{db: db}
	h.candleStmt, err = db.Prepare(`INSERT OR REPLACE INTO candles (event, ts, open, high, low, close) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite prepare candles: %w", err)
	}
	h.indicatorStmt, err = db.Prepare(`INSERT OR REPLACE INTO indicators (event, property, ts, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		h.candleStmt.Close()
		db.Close()
		return nil, fmt.Errorf("sqlite prepare indicators: %w", err)
	}

	log.Info().Str("db_path", config.DBPath).Msg("SQLite record store opened")
	return h, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			event TEXT    NOT NULL,
			ts    INTEGER NOT NULL,
			open  REAL    NOT NULL,
			high  REAL    NOT NULL,
			low   REAL    NOT NULL,
			close REAL    NOT NULL,
			PRIMARY KEY (event, ts)
		);

		CREATE TABLE IF NOT EXISTS indicators (
			event    TEXT    NOT NULL,
			property TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			value    INTEGER NOT NULL,
			PRIMARY KEY (event, property, ts)
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (h *SQLiteHandler) DB() *sql.DB { return h.db }

func (h *SQLiteHandler) HandleCandle(ctx context.Context, c domain.Candle) error {
	_, err := h.candleStmt.ExecContext(ctx, c.Event, c.Timestamp, c.Open, c.High, c.Low, c.Close)
	return err
}

func (h *SQLiteHandler) HandleIndicator(ctx context.Context, ind domain.Indicator) error {
	_, err := h.indicatorStmt.ExecContext(ctx, ind.Event, ind.Property, ind.Timestamp, ind.Value)
	return err
}

// Candles returns the stored candles of one event in timestamp order.
func (h *SQLiteHandler) Candles(ctx context.Context, event string) ([]domain.Candle, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT event, ts, open, high, low, close FROM candles WHERE event = ? ORDER BY ts`, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Event, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Indicators returns the stored values of one event property in timestamp order.
func (h *SQLiteHandler) Indicators(ctx context.Context, event, property string) ([]domain.Indicator, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT event, property, ts, value FROM indicators WHERE event = ? AND property = ? ORDER BY ts`,
		event, property)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Indicator
	for rows.Next() {
		var ind domain.Indicator
		if err := rows.Scan(&ind.Event, &ind.Property, &ind.Timestamp, &ind.Value); err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (h *SQLiteHandler) Close() error {
	h.candleStmt.Close()
	h.indicatorStmt.Close()
	return h.db.Close()
}
