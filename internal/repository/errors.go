package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStockTooLow is returned when a conditional stock decrement matched no row
	// because the product holds less than the requested amount.
	ErrStockTooLow = errors.New("stock too low")
)
