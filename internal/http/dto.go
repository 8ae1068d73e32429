package http

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/service"
)

type ProductResponse struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	Name      string     `json:"name"`
	UnitPrice string     `json:"unit_price"`
	Unit      model.Unit `json:"unit"`
	Quantity  string     `json:"quantity"`
	InStock   bool       `json:"in_stock"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateProductRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"dec_nonneg,dec_places=2"`
	Unit      model.Unit      `json:"unit" validate:"required,enum"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type UpdateProductRequest struct {
	Name      *string          `json:"name" validate:"omitempty,min=1,max=100"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty,dec_nonneg,dec_places=2"`
	Unit      *model.Unit      `json:"unit" validate:"omitempty,enum"`
	Quantity  *decimal.Decimal `json:"quantity"`
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type SetCartItemQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type CartLineResponse struct {
	ID       uuid.UUID       `json:"id"`
	Product  ProductResponse `json:"product"`
	Quantity string          `json:"quantity"`
	Subtotal string          `json:"subtotal"`
}

type ClampedLineResponse struct {
	LineID      uuid.UUID `json:"line_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Removed     bool      `json:"removed"`
}

type CartResponse struct {
	Items        []CartLineResponse    `json:"items"`
	Total        string                `json:"total"`
	Clamped      bool                  `json:"clamped"`
	Warnings     []string              `json:"warnings"`
	ClampedLines []ClampedLineResponse `json:"clamped_lines"`
}

type ReceiptLineResponse struct {
	ProductID      uuid.UUID  `json:"product_id"`
	ProductName    string     `json:"product_name"`
	Unit           model.Unit `json:"unit"`
	Quantity       string     `json:"quantity"`
	UnitPrice      string     `json:"unit_price"`
	Subtotal       string     `json:"subtotal"`
	RemainingStock string     `json:"remaining_stock"`
}

type ReceiptResponse struct {
	Lines       []ReceiptLineResponse `json:"lines"`
	Total       string                `json:"total"`
	PurchasedAt time.Time             `json:"purchased_at"`
}

func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(model.QuantityPlaces)
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		UnitPrice: formatDecimal(p.UnitPrice),
		Unit:      p.Unit,
		Quantity:  formatDecimal(p.Quantity),
		InStock:   p.InStock(),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toCartLineResponse(l model.CartLineWithProduct) CartLineResponse {
	return CartLineResponse{
		ID:       l.CartLine.ID,
		Product:  toProductResponse(l.Product),
		Quantity: formatDecimal(l.CartLine.Quantity),
		Subtotal: formatDecimal(l.Subtotal()),
	}
}

func toCartResponse(view service.CartView) CartResponse {
	res := CartResponse{
		Items:        make([]CartLineResponse, 0, len(view.Items)),
		Total:        formatDecimal(view.Total),
		Clamped:      view.Clamped,
		Warnings:     make([]string, 0, len(view.ClampedLines)),
		ClampedLines: make([]ClampedLineResponse, 0, len(view.ClampedLines)),
	}

	for _, item := range view.Items {
		line := toCartLineResponse(item.Line)
		line.Subtotal = formatDecimal(item.Subtotal)
		res.Items = append(res.Items, line)
	}

	for _, c := range view.ClampedLines {
		res.ClampedLines = append(res.ClampedLines, ClampedLineResponse{
			LineID:      c.LineID,
			ProductID:   c.ProductID,
			ProductName: c.ProductName,
			From:        formatDecimal(c.From),
			To:          formatDecimal(c.To),
			Removed:     c.Removed,
		})
		res.Warnings = append(res.Warnings, clampWarning(c))
	}

	return res
}

func clampWarning(c service.ClampedLine) string {
	if c.Removed {
		return fmt.Sprintf("%s is out of stock and was removed from your cart", c.ProductName)
	}
	return fmt.Sprintf("only %s of %s left in stock, quantity reduced from %s",
		formatDecimal(c.To), c.ProductName, formatDecimal(c.From))
}

func toReceiptResponse(receipt service.Receipt) ReceiptResponse {
	res := ReceiptResponse{
		Lines:       make([]ReceiptLineResponse, 0, len(receipt.Lines)),
		Total:       formatDecimal(receipt.Total),
		PurchasedAt: receipt.PurchasedAt,
	}

	for _, l := range receipt.Lines {
		res.Lines = append(res.Lines, ReceiptLineResponse{
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Unit:           l.Unit,
			Quantity:       formatDecimal(l.Quantity),
			UnitPrice:      formatDecimal(l.UnitPrice),
			Subtotal:       formatDecimal(l.Subtotal),
			RemainingStock: formatDecimal(l.RemainingStock),
		})
	}

	return res
}
