package entities

import "errors"

var (
	// ErrNotReady is returned while the price cache has not been populated yet.
	ErrNotReady = errors.New("prices are loading")
	// ErrInvalidAmount is returned for empty, zero or non-numeric amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNoRoute means both symbols are known but no rate chain links them.
	ErrNoRoute = errors.New("no conversion route")
	// ErrUnknownSymbol is returned for symbols outside the supported universe.
	ErrUnknownSymbol = errors.New("unknown currency symbol")

	ErrReservedSymbol = errors.New("symbol is a reserved name")
	ErrSymbolExists   = errors.New("symbol already exists")
	ErrPairExists     = errors.New("currency pair already registered")

	ErrNoSources = errors.New("no price source enabled")
)

// IsRejected reports whether err means "not ready or bad input" as opposed
// to a missing route.
func IsRejected(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, ErrInvalidAmount)
}

// IsConflict reports whether err is a custom registry conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrReservedSymbol) || errors.Is(err, ErrSymbolExists) || errors.Is(err, ErrPairExists)
}
