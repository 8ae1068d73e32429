package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unit is the unit of measure a product is sold in.
type Unit string

const (
	UnitLitre       Unit = "l"
	UnitKilogram    Unit = "kg"
	UnitSquareMetre Unit = "m2"
	UnitPiece       Unit = "pcs"
	UnitPack        Unit = "pack"
)

// Validate implements the enum validator contract.
func (u Unit) Validate() error {
	switch u {
	case UnitLitre, UnitKilogram, UnitSquareMetre, UnitPiece, UnitPack:
		return nil
	default:
		return fmt.Errorf("unknown unit: %q", string(u))
	}
}

// Countable reports whether the unit is only sold in whole quantities.
func (u Unit) Countable() bool {
	return u == UnitPiece || u == UnitPack
}

type Product struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Unit      Unit            `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InStock reports whether any quantity is on hand.
func (p Product) InStock() bool {
	return p.Quantity.IsPositive()
}
