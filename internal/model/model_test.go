package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/stock-cart/internal/model"
)

func TestUnit(t *testing.T) {
	tests := []struct {
		unit      model.Unit
		valid     bool
		countable bool
	}{
		{model.UnitLitre, true, false},
		{model.UnitKilogram, true, false},
		{model.UnitSquareMetre, true, false},
		{model.UnitPiece, true, true},
		{model.UnitPack, true, true},
		{model.Unit("box"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			if tt.valid {
				assert.NoError(t, tt.unit.Validate())
			} else {
				assert.Error(t, tt.unit.Validate())
			}
			assert.Equal(t, tt.countable, tt.unit.Countable())
		})
	}
}

func TestCartLineWithProduct(t *testing.T) {
	line := model.CartLineWithProduct{
		CartLine: model.CartLine{Quantity: decimal.RequireFromString("2.5")},
		Product: model.Product{
			UnitPrice: decimal.RequireFromString("4.20"),
			Quantity:  decimal.RequireFromString("2.00"),
		},
	}

	assert.True(t, line.Subtotal().Equal(decimal.RequireFromString("10.5")))
	assert.True(t, line.ExceedsStock())

	line.Quantity = decimal.RequireFromString("2")
	assert.False(t, line.ExceedsStock())
	assert.True(t, model.MinLineQuantity.Equal(decimal.RequireFromString("0.01")))
}
