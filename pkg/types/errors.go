package types

import "errors"

// Error taxonomy for the exchange core. Every failing operation surfaces one
// of these sentinels (usually wrapped with context via fmt.Errorf and %w) so
// callers can classify with errors.Is. A failing mutating call leaves all
// state untouched.
var (
	// ErrConfig indicates malformed or missing configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrPermission indicates an unauthorized mutation attempt.
	ErrPermission = errors.New("caller not permitted")

	// ErrUnknownToken indicates a reference to a token that is not
	// whitelisted, or has been disabled.
	ErrUnknownToken = errors.New("unknown or disabled token")

	// ErrNotFound indicates a reference to a nonexistent entity.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOrder indicates a non-positive quantity or price.
	ErrInvalidOrder = errors.New("invalid order parameters")

	// ErrInsufficientBalance indicates a balance shortfall.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientDeposit indicates a zero or insufficient deposit.
	ErrInsufficientDeposit = errors.New("insufficient deposit")

	// ErrOrderNotFound indicates an order id unknown to the market.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotOpen indicates an order already Filled or Cancelled.
	ErrOrderNotOpen = errors.New("order not open")

	// ErrPriceMismatch indicates incompatible sides or prices in matching.
	ErrPriceMismatch = errors.New("price mismatch")

	// ErrAlreadyInitialized indicates a repeated one-time initialization.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrNotInitialized indicates use before initialization.
	ErrNotInitialized = errors.New("not initialized")
)
