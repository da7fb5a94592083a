// internal/store/codec.go
package store

import (
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/adeavid/degenie/internal/curve"
)

// Borsh codec for curve records. The binary form is what the sqlite layer
// persists and what external tooling reads back, so the layout is the
// struct's field order and must only ever grow at the end.

// EncodeCurveState serializes a curve record.
func EncodeCurveState(state *curve.State) ([]byte, error) {
	data, err := bin.MarshalBorsh(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode curve state: %w", err)
	}
	return data, nil
}

// DecodeCurveState deserializes a curve record.
func DecodeCurveState(data []byte) (*curve.State, error) {
	var state curve.State
	if err := bin.UnmarshalBorsh(&state, data); err != nil {
		return nil, fmt.Errorf("failed to decode curve state: %w", err)
	}
	return &state, nil
}
