package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/stock-cart/internal/storage/mq"
)

// Mailer delivers buyer-facing notifications. The mail transport lives
// outside this service; a nil Mailer drops notifications after logging them.
type Mailer interface {
	SendCartItemAdded(ctx context.Context, ev CartItemAddedEvent) error
}

// Service is the event service.
type Service struct {
	logger     *slog.Logger
	mqConsumer mq.Consumer
	mailer     Mailer
}

// New creates a new event service.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
	mailer Mailer,
) *Service {
	return &Service{
		logger:     logger.With(slog.String("service", "event")),
		mqConsumer: mqConsumer,
		mailer:     mailer,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	if err := s.RegisterHandlers(); err != nil {
		return nil, err
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
	}

	return cleanup, nil
}

// RegisterHandlers binds every topic handler to the consumer.
func (s *Service) RegisterHandlers() error {
	if err := s.mqConsumer.RegisterHandler(TopicProductCreated, jsonHandler(s.handleProductCreatedEvent)); err != nil {
		return fmt.Errorf("register product created event handler: %w", err)
	}

	if err := s.mqConsumer.RegisterHandler(TopicCartItemAdded, jsonHandler(s.handleCartItemAddedEvent)); err != nil {
		return fmt.Errorf("register cart item added event handler: %w", err)
	}

	if err := s.mqConsumer.RegisterHandler(TopicCartPurchased, jsonHandler(s.handleCartPurchasedEvent)); err != nil {
		return fmt.Errorf("register cart purchased event handler: %w", err)
	}

	return nil
}

func jsonHandler[T any](fn func(ctx context.Context, ev T) error) mq.HandlerFunc {
	return func(ctx context.Context, topic string, payload []byte) error {
		var ev T
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", topic, err)
		}

		if err := fn(ctx, ev); err != nil {
			return fmt.Errorf("handle %s event: %w", topic, err)
		}

		return nil
	}
}
