package strategy

import "errors"

// Error definitions for zero-tolerance error handling. Everything here is fatal for
// the enclosing operation; the only local recoveries in this package are "venue has
// no usable liquidity" (skip to the next venue) and "amount below threshold"
// (silently skipped as dust).
var (
	// ErrZeroBalanceOrPrice signals degenerate oracle or aggregate state. Defaults
	// are never substituted.
	ErrZeroBalanceOrPrice = errors.New("balance or price is zero")

	// ErrOverRepay signals an exact-close request for more than is owed. Callers
	// that want clamping must use the close-to-target variant.
	ErrOverRepay = errors.New("attempted to repay more than is owed")

	// ErrRepayExceedsBalance signals that the converter requires a repay send
	// larger than the held borrow-asset balance beyond the accepted debt-gap
	// margin. That is inconsistent external state and is never retried.
	ErrRepayExceedsBalance = errors.New("required repay exceeds held balance beyond debt-gap margin")

	// ErrPriceImpactTooHigh signals a swap that failed the converter's validity
	// check while validation was requested.
	ErrPriceImpactTooHigh = errors.New("swap price impact too high")

	// ErrInvalidProportion signals a target proportion outside (0, 1).
	ErrInvalidProportion = errors.New("proportion must be strictly between 0 and 1")

	// ErrInvalidRatio signals a ratio parameter outside [0, 1].
	ErrInvalidRatio = errors.New("ratio must be between 0 and 1")
)
