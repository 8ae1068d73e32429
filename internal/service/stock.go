package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/apperr"
	"github.com/tuanvumaihuynh/stock-cart/internal/repository"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
)

// StockLedger is the single source of truth for on-hand product quantities.
type StockLedger interface {
	// WithDB binds the ledger to a transaction handle.
	WithDB(db db.DB) StockLedger
	GetAvailable(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	// Decrement reduces the on-hand quantity by amount if and only if the
	// current quantity covers it, and returns the remaining quantity.
	Decrement(ctx context.Context, productID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type stockLedger struct {
	productRepo repository.ProductRepository
}

func NewStockLedger(productRepo repository.ProductRepository) StockLedger {
	return &stockLedger{
		productRepo: productRepo,
	}
}

func (l *stockLedger) WithDB(db db.DB) StockLedger {
	return &stockLedger{
		productRepo: l.productRepo.WithDB(db),
	}
}

func (l *stockLedger) GetAvailable(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	product, err := l.productRepo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, apperr.ProductNotFoundErr
		}
		return decimal.Zero, fmt.Errorf("product repository get product: %w", err)
	}

	return product.Quantity, nil
}

func (l *stockLedger) Decrement(ctx context.Context, productID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperr.InvalidQuantityErr.WithMsg("decrement amount must be positive")
	}

	res, err := l.productRepo.DecrementStock(ctx, productID, amount)
	switch {
	case err == nil:
		return res.Remaining, nil
	case errors.Is(err, repository.ErrNotFound):
		return decimal.Zero, apperr.ProductNotFoundErr
	case errors.Is(err, repository.ErrStockTooLow):
		shortage := apperr.StockShortage{
			ProductID: productID,
			Requested: amount,
		}
		if product, getErr := l.productRepo.GetProduct(ctx, productID); getErr == nil {
			shortage.ProductName = product.Name
			shortage.Available = product.Quantity
		}
		return decimal.Zero, apperr.NewInsufficientStock(shortage)
	default:
		return decimal.Zero, fmt.Errorf("product repository decrement stock: %w", err)
	}
}
