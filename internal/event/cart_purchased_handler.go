package event

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

const TopicCartPurchased = "cart.purchased"

type CartPurchasedLine struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       string `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	Subtotal       string `json:"subtotal"`
	RemainingStock string `json:"remaining_stock"`
}

type CartPurchasedEvent struct {
	UserID      string              `json:"user_id"`
	Lines       []CartPurchasedLine `json:"lines"`
	Total       string              `json:"total"`
	PurchasedAt string              `json:"purchased_at"`
}

func (s *Service) handleCartPurchasedEvent(ctx context.Context, ev CartPurchasedEvent) error {
	for _, line := range ev.Lines {
		remaining, err := decimal.NewFromString(line.RemainingStock)
		if err == nil && remaining.IsZero() {
			s.logger.WarnContext(ctx, "product sold out",
				slog.String("product_id", line.ProductID),
				slog.String("product_name", line.ProductName))
		}
	}

	s.logger.InfoContext(ctx, "handling cart purchased event",
		slog.String("user_id", ev.UserID),
		slog.Int("lines", len(ev.Lines)),
		slog.String("total", ev.Total))
	return nil
}
