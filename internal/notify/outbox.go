package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tuanvumaihuynh/stock-cart/internal/event"
	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/repository"
	"github.com/tuanvumaihuynh/stock-cart/internal/service"
	"github.com/tuanvumaihuynh/stock-cart/pkg/outbox"
)

var _ service.ItemAddedNotifier = (*OutboxNotifier)(nil)

// OutboxNotifier records item-added notifications in the outbox table.
// The relay publishes them and the event service hands them to the mailer.
type OutboxNotifier struct {
	outboxMsgRepo repository.OutboxMsgRepository
}

func NewOutboxNotifier(outboxMsgRepo repository.OutboxMsgRepository) *OutboxNotifier {
	return &OutboxNotifier{
		outboxMsgRepo: outboxMsgRepo,
	}
}

func (n *OutboxNotifier) NotifyItemAdded(ctx context.Context, item service.ItemAdded) error {
	ev := event.CartItemAddedEvent{
		UserID:       item.Line.UserID.String(),
		CartLineID:   item.Line.ID.String(),
		ProductID:    item.Product.ID.String(),
		ProductName:  item.Product.Name,
		UnitPrice:    item.Product.UnitPrice.StringFixed(model.QuantityPlaces),
		Unit:         string(item.Product.Unit),
		LineQuantity: item.Line.Quantity.StringFixed(model.QuantityPlaces),
		LineTotal:    item.Product.UnitPrice.Mul(item.Line.Quantity).StringFixed(model.QuantityPlaces),
		Created:      item.Created,
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partitionKey := ev.UserID
	if err := n.outboxMsgRepo.CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:        event.TopicCartItemAdded,
		Headers:      outbox.BuildHeaders(ctx),
		Payload:      payload,
		PartitionKey: &partitionKey,
	}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}
