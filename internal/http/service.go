package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	apicontract "github.com/tuanvumaihuynh/stock-cart/api-contract"
	"github.com/tuanvumaihuynh/stock-cart/internal/config"
	"github.com/tuanvumaihuynh/stock-cart/internal/http/apierr"
	"github.com/tuanvumaihuynh/stock-cart/internal/http/metric"
	"github.com/tuanvumaihuynh/stock-cart/internal/http/middleware"
	"github.com/tuanvumaihuynh/stock-cart/internal/http/swagger"
	"github.com/tuanvumaihuynh/stock-cart/internal/service"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
	"github.com/tuanvumaihuynh/stock-cart/pkg/validator"
)

var tracer = otel.Tracer("internal/http")

const HealthPath = "/healthz"

// Service represents the HTTP service.
type Service struct {
	cfg       config.HTTP
	logger    *slog.Logger
	metrics   *metric.Metrics
	validator validator.Validator

	healthChecker db.HealthChecker
	productSvc    service.ProductService
	cartSvc       service.CartService
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	healthChecker db.HealthChecker,
	productSvc service.ProductService,
	cartSvc service.CartService,
) (*Service, error) {
	v, err := validator.NewDefaultValidator()
	if err != nil {
		return nil, fmt.Errorf("new default validator: %w", err)
	}

	return &Service{
		cfg:           cfg,
		logger:        log.With(slog.String("service", "http")),
		metrics:       metric.New(),
		validator:     v,
		healthChecker: healthChecker,
		productSvc:    productSvc,
		cartSvc:       cartSvc,
	}, nil
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	handler, err := s.Handler()
	if err != nil {
		return nil, err
	}

	return s.RunWithServer(ctx, handler)
}

// Handler builds the router with every middleware and route registered.
func (s *Service) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	if err := s.RegisterMiddlewares(r); err != nil {
		return nil, err
	}

	if s.cfg.Swagger {
		if err := swagger.Register(r, apicontract.GetSpecBytes()); err != nil {
			return nil, fmt.Errorf("register swagger: %w", err)
		}
	}

	s.RegisterHandlers(r)

	return r, nil
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	s.logger.InfoContext(ctx, "http server started", slog.String("addr", srv.Addr))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) error {
	openapiValidator, err := middleware.OpenAPIValidator(apicontract.GetSpecBytes())
	if err != nil {
		return fmt.Errorf("openapi validator: %w", err)
	}

	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.CorsOrigins),
		middleware.Identity(),
		middleware.Logging(s.logger),
		openapiValidator,
	)

	return nil
}

func (s *Service) RegisterHandlers(r chi.Router) {
	products := newProductHandler(s.productSvc, s.validator)
	cart := newCartHandler(s.cartSvc, s.validator, s.metrics)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handle(products.ListProducts))
		r.Post("/", s.handle(products.CreateProduct))
		r.Get("/{productId}", s.handle(products.GetProduct))
		r.Patch("/{productId}", s.handle(products.UpdateProduct))
		r.Delete("/{productId}", s.handle(products.DeleteProduct))
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.handle(cart.GetCart))
		r.Post("/items", s.handle(cart.AddCartItem))
		r.Patch("/items/{lineId}", s.handle(cart.SetCartItemQuantity))
		r.Delete("/items/{lineId}", s.handle(cart.RemoveCartItem))
		r.Post("/purchase", s.handle(cart.PurchaseCart))
	})

	r.Get(HealthPath, s.handle(s.health))

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, apierr.ErrorResponse{
			Code:       "NOT_FOUND",
			Message:    "route not found",
			StatusCode: http.StatusNotFound,
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, apierr.ErrorResponse{
			Code:       "METHOD_NOT_ALLOWED",
			Message:    "method not allowed",
			StatusCode: http.StatusMethodNotAllowed,
		})
	})
}

func (s *Service) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.handleResponseError(w, r, err)
		}
	}
}

func (s *Service) health(w http.ResponseWriter, r *http.Request) error {
	if _, err := s.healthChecker.IsHealthy(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		return writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	s.writeError(w, r, res)
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, res apierr.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}
