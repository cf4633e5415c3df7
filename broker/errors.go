package broker

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrPositionNotOpen    = errors.New("position not open")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidMarketData  = errors.New("invalid market data")
)

// MarginError describes a rejected open. It matches ErrInsufficientMargin
// with errors.Is.
type MarginError struct {
	Symbol string
	Need   float64
	Have   float64
}

func (e *MarginError) Error() string {
	return fmt.Sprintf("%v for %s: need %.6f, have %.6f", ErrInsufficientMargin, e.Symbol, e.Need, e.Have)
}

func (e *MarginError) Unwrap() error {
	return ErrInsufficientMargin
}
