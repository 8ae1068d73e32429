// Package relay publishes committed outbox messages to Kafka.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tuanvumaihuynh/stock-cart/internal/config"
	"github.com/tuanvumaihuynh/stock-cart/internal/repository"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/mq"
	"github.com/tuanvumaihuynh/stock-cart/pkg/outbox"
	"github.com/tuanvumaihuynh/stock-cart/pkg/ptr"
)

type Service struct {
	cfg           config.Relay
	logger        *slog.Logger
	db            db.DB
	outboxMsgRepo repository.OutboxMsgRepository
	mqProducer    mq.Producer

	stopChan chan struct{}
}

func NewService(
	cfg config.Relay,
	logger *slog.Logger,
	db db.DB,
	outboxMsgRepo repository.OutboxMsgRepository,
	mqProducer mq.Producer,
) *Service {
	return &Service{
		cfg:           cfg,
		logger:        logger.With(slog.String("service", "relay")),
		db:            db,
		outboxMsgRepo: outboxMsgRepo,
		mqProducer:    mqProducer,
		stopChan:      make(chan struct{}),
	}
}

type CleanupFunc func()

// BatchResult summarises one relay pass.
type BatchResult struct {
	Published int
	Failed    int
}

func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	stoppedChan := make(chan struct{})
	go func() {
		defer close(stoppedChan)
		s.run(ctx)
	}()

	return func() {
		close(s.stopChan)
		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
			<-stoppedChan
		}
		cancel()
	}
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			// drain backlogs without waiting a full interval between batches
			for {
				res, err := s.RelayBatch(ctx)
				if err != nil {
					s.logger.ErrorContext(ctx, "error relaying outbox msgs", slog.Any("error", err))
					break
				}
				//nolint:gosec
				if uint32(res.Published+res.Failed) < s.cfg.BatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// RelayBatch publishes up to one batch of unprocessed outbox messages and
// marks each as processed, recording the produce error for failures. The
// batch rows stay locked until the marks are written, so concurrent relays
// never publish the same message.
func (s *Service) RelayBatch(ctx context.Context) (BatchResult, error) {
	var res BatchResult

	err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.outboxMsgRepo.WithDB(db)

		outboxMsgs, err := repo.ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{
			//nolint:gosec
			BatchSize: int32(s.cfg.BatchSize),
		})
		if err != nil {
			return fmt.Errorf("list unprocessed outbox msgs: %w", err)
		}

		if len(outboxMsgs) == 0 {
			return nil
		}

		items := s.publish(ctx, outboxMsgs)

		if err := repo.BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{
			Items: items,
		}); err != nil {
			return fmt.Errorf("bulk update outbox msgs: %w", err)
		}

		for _, item := range items {
			if item.Error != nil {
				res.Failed++
			} else {
				res.Published++
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}

	if res.Published+res.Failed > 0 {
		s.logger.InfoContext(ctx, "relayed outbox msgs",
			slog.Int("published", res.Published),
			slog.Int("failed", res.Failed),
		)
	}

	return res, nil
}

func (s *Service) publish(ctx context.Context, outboxMsgs []repository.ListUnprocessedOutboxMsgsResult) []repository.BulkUpdateOutboxMsgsItem {
	items := make([]repository.BulkUpdateOutboxMsgsItem, 0, len(outboxMsgs))
	var mu sync.Mutex

	g := new(errgroup.Group)
	if s.cfg.Concurrency > 0 {
		g.SetLimit(s.cfg.Concurrency)
	}

	for _, msg := range outboxMsgs {
		g.Go(func() error {
			// continue the trace and correlation of the request that wrote the message
			msgCtx := outbox.ExtractContextFromHeaders(ctx, msg.Headers)

			item := repository.BulkUpdateOutboxMsgsItem{ID: msg.ID}
			if err := s.mqProducer.Produce(msgCtx, mq.ProduceMsg{
				Topic:        msg.Topic,
				Headers:      msg.Headers,
				Payload:      msg.Payload,
				PartitionKey: msg.PartitionKey,
			}); err != nil {
				s.logger.ErrorContext(msgCtx,
					"error producing message",
					slog.String("outbox_msg_id", msg.ID.String()),
					slog.String("topic", msg.Topic),
					slog.Any("error", err),
				)
				item.Error = ptr.New(err.Error())
			}

			mu.Lock()
			items = append(items, item)
			mu.Unlock()
			return nil
		})
	}

	//nolint:errcheck
	g.Wait()

	return items
}
