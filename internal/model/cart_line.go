package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartLineStatus string

const (
	CartLineStatusInCart    CartLineStatus = "in_cart"
	CartLineStatusPurchased CartLineStatus = "purchased"
)

// QuantityPlaces is the number of decimal places stored for every quantity.
const QuantityPlaces = 2

var (
	// MinLineQuantity is the smallest quantity a cart line may hold.
	MinLineQuantity = decimal.New(1, -QuantityPlaces)
	// One is the step used when a product is added to the cart.
	One = decimal.NewFromInt(1)
	// MaxAmount is the largest price or quantity a NUMERIC(10,2) column holds.
	MaxAmount = decimal.New(9999999999, -QuantityPlaces)
)

type CartLine struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Status    CartLineStatus  `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// CartLineWithProduct is a cart line joined with the live product row it references.
type CartLineWithProduct struct {
	CartLine
	Product Product
}

// Subtotal is the unit price multiplied by the line quantity.
func (l CartLineWithProduct) Subtotal() decimal.Decimal {
	return l.Product.UnitPrice.Mul(l.Quantity)
}

// ExceedsStock reports whether the line asks for more than is on hand.
func (l CartLineWithProduct) ExceedsStock() bool {
	return l.Quantity.GreaterThan(l.Product.Quantity)
}
