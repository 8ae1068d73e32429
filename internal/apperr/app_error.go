package apperr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/pkg/zerror"
)

const (
	ValidationErrorCode   = "VALIDATION_FAILED"
	UnauthenticatedCode   = "UNAUTHENTICATED"
	ProductNotFoundCode   = "PRODUCT_NOT_FOUND"
	ProductForbiddenCode  = "PRODUCT_FORBIDDEN"
	CartLineNotFoundCode  = "CART_LINE_NOT_FOUND"
	OutOfStockCode        = "OUT_OF_STOCK"
	InsufficientStockCode = "INSUFFICIENT_STOCK"
	InvalidQuantityCode   = "INVALID_QUANTITY"
)

var (
	ValidationErr        = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	UnauthenticatedErr   = zerror.NewUnauthorized(UnauthenticatedCode, "missing or invalid user identity")
	ProductNotFoundErr   = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	ProductForbiddenErr  = zerror.NewForbidden(ProductForbiddenCode, "product belongs to another owner")
	CartLineNotFoundErr  = zerror.NewNotFound(CartLineNotFoundCode, "cart line not found")
	OutOfStockErr        = zerror.NewConflict(OutOfStockCode, "product is out of stock")
	InsufficientStockErr = zerror.NewConflict(InsufficientStockCode, "not enough stock")
	InvalidQuantityErr   = zerror.NewUnprocessableEntity(InvalidQuantityCode, "invalid quantity")
)

// StockShortage describes one product that cannot cover a requested quantity.
type StockShortage struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

// ShortageError lists every product that failed a stock check.
// It is attached as the parent of InsufficientStockErr.
type ShortageError struct {
	Shortages []StockShortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (%s): requested %s, available %s",
			s.ProductName, s.ProductID, s.Requested.StringFixed(2), s.Available.StringFixed(2)))
	}
	return "insufficient stock for " + strings.Join(parts, "; ")
}

// NewInsufficientStock builds an InsufficientStockErr naming the offending products.
func NewInsufficientStock(shortages ...StockShortage) error {
	names := make([]string, 0, len(shortages))
	for _, s := range shortages {
		names = append(names, s.ProductName)
	}

	err := InsufficientStockErr
	if len(names) > 0 {
		err = err.WithMsg("not enough stock for: " + strings.Join(names, ", "))
	}

	return err.WrapParent(&ShortageError{Shortages: shortages})
}
