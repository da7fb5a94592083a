// internal/store/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/adeavid/degenie/internal/curve"
	"github.com/adeavid/degenie/internal/store"
)

// DB persists curve records, per-trader activity and the trade history.
// The engine treats it as write-behind storage: the in-memory store is
// authoritative during a trade, the snapshot lands here after commit.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

func Open(path string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &DB{db: db, logger: logger.Named("sqlite")}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS curves (
            mint TEXT PRIMARY KEY,
            record BLOB NOT NULL,
            updated_at DATETIME NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS user_activity (
            mint TEXT NOT NULL,
            trader TEXT NOT NULL,
            last_transaction_time INTEGER NOT NULL,
            total_bought INTEGER NOT NULL,
            transaction_count INTEGER NOT NULL,
            PRIMARY KEY (mint, trader)
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS trades (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            mint TEXT NOT NULL,
            trader TEXT NOT NULL,
            side TEXT NOT NULL,
            lamports INTEGER NOT NULL,
            tokens INTEGER NOT NULL,
            price INTEGER NOT NULL,
            fee INTEGER NOT NULL,
            timestamp DATETIME NOT NULL
        )
    `)
	return err
}

// SaveCurve upserts the borsh-encoded curve snapshot.
func (d *DB) SaveCurve(ctx context.Context, state *curve.State) error {
	record, err := store.EncodeCurveState(state)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `
        INSERT INTO curves (mint, record, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(mint) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at
    `, state.Mint.String(), record, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save curve: %w", err)
	}
	return nil
}

// LoadCurves restores every persisted curve snapshot.
func (d *DB) LoadCurves(ctx context.Context) ([]*curve.State, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT record FROM curves`)
	if err != nil {
		return nil, fmt.Errorf("failed to query curves: %w", err)
	}
	defer rows.Close()

	var states []*curve.State
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan curve row: %w", err)
		}
		state, err := store.DecodeCurveState(record)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// SaveActivity upserts a trader's activity record.
func (d *DB) SaveActivity(ctx context.Context, mint, trader solana.PublicKey, activity curve.UserActivity) error {
	_, err := d.db.ExecContext(ctx, `
        INSERT INTO user_activity (mint, trader, last_transaction_time, total_bought, transaction_count)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(mint, trader) DO UPDATE SET
            last_transaction_time = excluded.last_transaction_time,
            total_bought = excluded.total_bought,
            transaction_count = excluded.transaction_count
    `, mint.String(), trader.String(), activity.LastTransactionTime,
		int64(activity.TotalBought), int64(activity.TransactionCount))
	if err != nil {
		return fmt.Errorf("failed to save user activity: %w", err)
	}
	return nil
}

// RecordTrade appends one accepted trade to the history.
func (d *DB) RecordTrade(ctx context.Context, trade store.TradeRecord) error {
	_, err := d.db.ExecContext(ctx, `
        INSERT INTO trades (mint, trader, side, lamports, tokens, price, fee, timestamp)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, trade.Mint, trade.Trader, trade.Side, int64(trade.Lamports),
		int64(trade.Tokens), int64(trade.Price), int64(trade.Fee), trade.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}
	return nil
}

// ListTrades returns the trade history for a mint, oldest first. A
// non-positive limit returns the full history.
func (d *DB) ListTrades(ctx context.Context, mint string, limit int) ([]store.TradeRecord, error) {
	if limit <= 0 {
		limit = -1 // sqlite: LIMIT -1 disables the limit
	}
	rows, err := d.db.QueryContext(ctx, `
        SELECT mint, trader, side, lamports, tokens, price, fee, timestamp
        FROM trades WHERE mint = ? ORDER BY id ASC LIMIT ?
    `, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []store.TradeRecord
	for rows.Next() {
		var tr store.TradeRecord
		var lamports, tokens, price, fee int64
		if err := rows.Scan(&tr.Mint, &tr.Trader, &tr.Side, &lamports, &tokens, &price, &fee, &tr.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		tr.Lamports = uint64(lamports)
		tr.Tokens = uint64(tokens)
		tr.Price = uint64(price)
		tr.Fee = uint64(fee)
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

func (d *DB) Close() error {
	return d.db.Close()
}
