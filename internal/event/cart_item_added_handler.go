package event

import (
	"context"
	"fmt"
	"log/slog"
)

const TopicCartItemAdded = "cart.item_added"

// CartItemAddedEvent is published after a product lands in a buyer's cart.
// Created is false when an existing line was incremented.
type CartItemAddedEvent struct {
	UserID       string `json:"user_id"`
	CartLineID   string `json:"cart_line_id"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	UnitPrice    string `json:"unit_price"`
	Unit         string `json:"unit"`
	LineQuantity string `json:"line_quantity"`
	LineTotal    string `json:"line_total"`
	Created      bool   `json:"created"`
}

func (s *Service) handleCartItemAddedEvent(ctx context.Context, ev CartItemAddedEvent) error {
	if !ev.Created {
		s.logger.DebugContext(ctx, "skipping cart notification for incremented line",
			slog.String("cart_line_id", ev.CartLineID))
		return nil
	}

	if s.mailer == nil {
		s.logger.InfoContext(ctx, "no mailer configured, dropping cart notification",
			slog.String("cart_line_id", ev.CartLineID))
		return nil
	}

	if err := s.mailer.SendCartItemAdded(ctx, ev); err != nil {
		return fmt.Errorf("send cart item added mail: %w", err)
	}

	return nil
}
