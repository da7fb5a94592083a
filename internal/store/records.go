// internal/store/records.go
package store

import "time"

// TradeRecord is one accepted buy or sell, as persisted in the trade
// history and consumed by the analytics export.
type TradeRecord struct {
	Mint      string    `json:"mint"`
	Trader    string    `json:"trader"`
	Side      string    `json:"side"` // "buy" or "sell"
	Lamports  uint64    `json:"lamports"`
	Tokens    uint64    `json:"tokens"`
	Price     uint64    `json:"price"`
	Fee       uint64    `json:"fee"`
	Timestamp time.Time `json:"timestamp"`
}
