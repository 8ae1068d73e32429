package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tuanvumaihuynh/stock-cart/internal/config"
	"github.com/tuanvumaihuynh/stock-cart/internal/event"
	"github.com/tuanvumaihuynh/stock-cart/internal/http"
	"github.com/tuanvumaihuynh/stock-cart/internal/log"
	"github.com/tuanvumaihuynh/stock-cart/internal/notify"
	"github.com/tuanvumaihuynh/stock-cart/internal/relay"
	"github.com/tuanvumaihuynh/stock-cart/internal/repository"
	"github.com/tuanvumaihuynh/stock-cart/internal/service"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/mq"
	"github.com/tuanvumaihuynh/stock-cart/internal/telemetry"
	"github.com/tuanvumaihuynh/stock-cart/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		HTTP     config.HTTP
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
		Cart     config.Cart
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer: %w", err)
	}
	defer kafkaConsumer.Close()

	productRepository := repository.NewProductRepository(dbClient)
	cartLineRepository := repository.NewCartLineRepository(dbClient)
	outboxMsgRepository := repository.NewOutboxMsgRepository(dbClient)

	stockLedger := service.NewStockLedger(productRepository)
	productService := service.NewProductService(dbClient, productRepository, outboxMsgRepository)
	cartService := service.NewCartService(
		cfg.Cart,
		logger,
		dbClient,
		productRepository,
		cartLineRepository,
		outboxMsgRepository,
		stockLedger,
		notify.NewOutboxNotifier(outboxMsgRepository),
	)

	httpService, err := http.New(cfg.HTTP, logger, dbClient, productService, cartService)
	if err != nil {
		return fmt.Errorf("error creating http service: %w", err)
	}

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	wg.Go(func() {
		// no mail transport is wired in; the event service logs deliveries
		svc := event.New(logger, kafkaConsumer, nil)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running event service: %w", err))
		}
		logger.InfoContext(ctx, "event service started")

		<-interruptChan

		logger.InfoContext(ctx, "event service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "event service is stopped")
	})

	wg.Go(func() {
		cleanup, err := httpService.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, dbClient, outboxMsgRepository, kafkaProducer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Wait()

	return nil
}
