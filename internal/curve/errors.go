// internal/curve/errors.go
package curve

import "errors"

// ErrorKind classifies every rejection the engine can produce. A rejected
// operation always leaves the curve in its prior state; nothing is retried
// internally.
type ErrorKind uint8

const (
	KindValidation ErrorKind = iota + 1
	KindArithmetic
	KindPolicy
	KindState
)

// EngineError is a sentinel rejection with a fixed kind. Instances are
// compared with errors.Is, never by message.
type EngineError struct {
	kind ErrorKind
	msg  string
}

func (e *EngineError) Error() string   { return e.msg }
func (e *EngineError) Kind() ErrorKind { return e.kind }

// Validation errors: malformed input, rejected before any state is touched.
var (
	ErrInvalidAmount     = &EngineError{KindValidation, "amount must be greater than zero"}
	ErrInvalidName       = &EngineError{KindValidation, "token name must be non-empty and at most 32 characters"}
	ErrInvalidSymbol     = &EngineError{KindValidation, "token symbol must be non-empty and at most 10 characters"}
	ErrInvalidURI        = &EngineError{KindValidation, "metadata uri must be non-empty"}
	ErrInvalidDecimals   = &EngineError{KindValidation, "decimals must be at most 9"}
	ErrInvalidPrice      = &EngineError{KindValidation, "initial price must be greater than zero"}
	ErrInvalidMaxSupply  = &EngineError{KindValidation, "max supply must be greater than zero"}
	ErrInvalidIncrement  = &EngineError{KindValidation, "price increment must be greater than zero"}
	ErrInvalidGrowthRate = &EngineError{KindValidation, "growth rate incompatible with curve type"}
	ErrInvalidFeeConfig  = &EngineError{KindValidation, "creator and platform fee must not exceed transaction fee"}
)

// Arithmetic errors: overflow, underflow or divide-by-zero detected before
// any partial mutation is committed.
var (
	ErrArithmeticOverflow = &EngineError{KindArithmetic, "arithmetic overflow"}
	ErrDivideByZero       = &EngineError{KindArithmetic, "division by zero"}
)

// Policy rejections: the trade is well-formed but the anti-bot policy or the
// dust rule refuses it.
var (
	ErrCooldownActive     = &EngineError{KindPolicy, "transaction cooldown still active"}
	ErrLaunchBuyLimit     = &EngineError{KindPolicy, "buy exceeds launch protection limit"}
	ErrPriceImpactTooHigh = &EngineError{KindPolicy, "price impact exceeds allowed maximum"}
	ErrZeroTokenPurchase  = &EngineError{KindPolicy, "purchase amount too small to mint any tokens"}
)

// State errors: rejected because of the curve's current phase.
var (
	ErrCurveGraduated     = &EngineError{KindState, "curve already graduated"}
	ErrNotGraduated       = &EngineError{KindState, "curve has not graduated"}
	ErrThresholdNotMet    = &EngineError{KindState, "graduation threshold not met"}
	ErrPoolAlreadyCreated = &EngineError{KindState, "external pool already created"}
	ErrExceedsMaxSupply   = &EngineError{KindState, "purchase exceeds maximum supply"}
	ErrCurveExists        = &EngineError{KindState, "curve already initialized for mint"}
	ErrCurveNotFound      = &EngineError{KindState, "curve not found for mint"}
)

// KindOf extracts the classification from err, unwrapping as needed.
// Returns 0 for errors that did not originate in the engine.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.kind
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsArithmetic(err error) bool { return KindOf(err) == KindArithmetic }
func IsPolicy(err error) bool     { return KindOf(err) == KindPolicy }
func IsState(err error) bool      { return KindOf(err) == KindState }
