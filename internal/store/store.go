// internal/store/store.go
package store

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/adeavid/degenie/internal/curve"
)

// Store keys every CurveState by its mint and mediates all access through a
// single-writer-per-key discipline: an update holds the curve's lock for
// the whole guard-check / compute / apply sequence, while curves for
// different mints proceed concurrently.
type Store struct {
	mu     sync.RWMutex
	curves map[solana.PublicKey]*entry
}

type entry struct {
	mu       sync.Mutex
	state    curve.State
	activity map[solana.PublicKey]curve.UserActivity
}

func New() *Store {
	return &Store{curves: make(map[solana.PublicKey]*entry)}
}

// Create registers a freshly initialized curve. The mint must be new.
func (s *Store) Create(state curve.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.curves[state.Mint]; exists {
		return curve.ErrCurveExists
	}
	s.curves[state.Mint] = &entry{
		state:    state,
		activity: make(map[solana.PublicKey]curve.UserActivity),
	}
	return nil
}

func (s *Store) lookup(mint solana.PublicKey) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.curves[mint]
	if !ok {
		return nil, curve.ErrCurveNotFound
	}
	return e, nil
}

// Get returns a copy of the curve state.
func (s *Store) Get(mint solana.PublicKey) (curve.State, error) {
	e, err := s.lookup(mint)
	if err != nil {
		return curve.State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

// Activity returns a copy of the trader's activity record for the curve.
func (s *Store) Activity(mint, trader solana.PublicKey) (curve.UserActivity, error) {
	e, err := s.lookup(mint)
	if err != nil {
		return curve.UserActivity{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activity[trader], nil
}

// UpdateTrade runs fn under the curve's lock with working copies of the
// state and the trader's activity record. Both are committed together only
// when fn succeeds, so a rejection at any point leaves no partial state.
func (s *Store) UpdateTrade(mint, trader solana.PublicKey, fn func(*curve.State, *curve.UserActivity) error) error {
	e, err := s.lookup(mint)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.state
	activity := e.activity[trader]
	if err := fn(&state, &activity); err != nil {
		return err
	}
	e.state = state
	e.activity[trader] = activity
	return nil
}

// Update is UpdateTrade without a trader, for administrative transitions
// such as graduation and pool creation.
func (s *Store) Update(mint solana.PublicKey, fn func(*curve.State) error) error {
	e, err := s.lookup(mint)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.state
	if err := fn(&state); err != nil {
		return err
	}
	e.state = state
	return nil
}

// Mints returns the keys of all registered curves.
func (s *Store) Mints() []solana.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mints := make([]solana.PublicKey, 0, len(s.curves))
	for mint := range s.curves {
		mints = append(mints, mint)
	}
	return mints
}
