// internal/custody/memory.go
package custody

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Memory is an in-process custody implementation used by tests and the
// local simulation mode. It records every operation and keeps simple token
// ledgers; individual operations can be armed to fail so callers can prove
// the engine's transactional boundary.
type Memory struct {
	mu sync.Mutex

	tokens   map[solana.PublicKey]map[solana.PublicKey]uint64 // asset -> account -> balance
	frozen   map[solana.PublicKey]map[solana.PublicKey]bool
	metadata map[solana.PublicKey]MetadataRecord

	Ops []Op

	FailMint     error
	FailBurn     error
	FailTransfer error
}

type MetadataRecord struct {
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

// Op is one recorded custody operation.
type Op struct {
	Kind      string
	Asset     solana.PublicKey
	From      solana.PublicKey
	To        solana.PublicKey
	Amount    uint64
	AppliedAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		tokens:   make(map[solana.PublicKey]map[solana.PublicKey]uint64),
		frozen:   make(map[solana.PublicKey]map[solana.PublicKey]bool),
		metadata: make(map[solana.PublicKey]MetadataRecord),
	}
}

func (m *Memory) record(op Op) {
	op.AppliedAt = time.Now()
	m.Ops = append(m.Ops, op)
}

func (m *Memory) ledger(asset solana.PublicKey) map[solana.PublicKey]uint64 {
	l, ok := m.tokens[asset]
	if !ok {
		l = make(map[solana.PublicKey]uint64)
		m.tokens[asset] = l
	}
	return l
}

func (m *Memory) Mint(_ context.Context, asset, destination solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailMint != nil {
		return m.FailMint
	}
	m.ledger(asset)[destination] += amount
	m.record(Op{Kind: "mint", Asset: asset, To: destination, Amount: amount})
	return nil
}

func (m *Memory) Burn(_ context.Context, asset, source solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailBurn != nil {
		return m.FailBurn
	}
	l := m.ledger(asset)
	if l[source] < amount {
		return errors.New("insufficient token balance")
	}
	l[source] -= amount
	m.record(Op{Kind: "burn", Asset: asset, From: source, Amount: amount})
	return nil
}

func (m *Memory) TransferValue(_ context.Context, from, to solana.PublicKey, lamports uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTransfer != nil {
		return m.FailTransfer
	}
	m.record(Op{Kind: "transfer", From: from, To: to, Amount: lamports})
	return nil
}

func (m *Memory) Freeze(_ context.Context, asset, account solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frozen[asset]
	if !ok {
		f = make(map[solana.PublicKey]bool)
		m.frozen[asset] = f
	}
	f[account] = true
	m.record(Op{Kind: "freeze", Asset: asset, From: account})
	return nil
}

func (m *Memory) Thaw(_ context.Context, asset, account solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.frozen[asset]; ok {
		delete(f, account)
	}
	m.record(Op{Kind: "thaw", Asset: asset, From: account})
	return nil
}

func (m *Memory) RegisterMetadata(_ context.Context, asset solana.PublicKey, name, symbol, uri string, decimals uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.metadata[asset]; exists {
		return errors.New("metadata already registered")
	}
	m.metadata[asset] = MetadataRecord{Name: name, Symbol: symbol, URI: uri, Decimals: decimals}
	m.record(Op{Kind: "metadata", Asset: asset})
	return nil
}

// TokenBalance reports the ledger balance for tests.
func (m *Memory) TokenBalance(asset, account solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger(asset)[account]
}

// Metadata returns the registered record, if any.
func (m *Memory) Metadata(asset solana.PublicKey) (MetadataRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.metadata[asset]
	return rec, ok
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }
