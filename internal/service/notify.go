package service

import (
	"context"

	"github.com/tuanvumaihuynh/stock-cart/internal/model"
)

// ItemAdded describes a successful add-to-cart.
type ItemAdded struct {
	Line    model.CartLine
	Product model.Product
	// Created is true when the line did not exist before the call.
	Created bool
}

// ItemAddedNotifier is told about every successful add-to-cart after the
// cart change has been committed. Its failures are logged and never undo
// or fail the cart operation.
type ItemAddedNotifier interface {
	NotifyItemAdded(ctx context.Context, item ItemAdded) error
}
