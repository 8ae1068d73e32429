package event

import (
	"context"
	"log/slog"
)

const TopicProductCreated = "product.created"

type ProductCreatedEvent struct {
	ProductID string `json:"product_id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Unit      string `json:"unit"`
	Quantity  string `json:"quantity"`
}

func (s *Service) handleProductCreatedEvent(ctx context.Context, ev ProductCreatedEvent) error {
	s.logger.InfoContext(ctx, "handling product created event", slog.Any("event", ev))
	return nil
}
