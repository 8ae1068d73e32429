package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/apperr"
	"github.com/tuanvumaihuynh/stock-cart/internal/config"
	"github.com/tuanvumaihuynh/stock-cart/internal/event"
	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/repository"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
	"github.com/tuanvumaihuynh/stock-cart/pkg/outbox"
)

type AddOrIncrementResult struct {
	Line    model.CartLine
	Product model.Product
	Created bool
}

type SetQuantityParams struct {
	UserID   uuid.UUID
	LineID   uuid.UUID
	Quantity decimal.Decimal
}

type CartItem struct {
	Line     model.CartLineWithProduct
	Subtotal decimal.Decimal
}

// ClampedLine records a cart line whose quantity was reduced to the stock on hand.
// Removed is set when no stock was left and the line was dropped.
type ClampedLine struct {
	LineID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	From        decimal.Decimal
	To          decimal.Decimal
	Removed     bool
}

type CartView struct {
	Items        []CartItem
	Total        decimal.Decimal
	Clamped      bool
	ClampedLines []ClampedLine
}

type ReceiptLine struct {
	ProductID      uuid.UUID
	ProductName    string
	Unit           model.Unit
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	Subtotal       decimal.Decimal
	RemainingStock decimal.Decimal
}

type Receipt struct {
	Lines       []ReceiptLine
	Total       decimal.Decimal
	PurchasedAt time.Time
}

type CartService interface {
	// AddOrIncrement puts one unit of the product in the user's cart.
	AddOrIncrement(ctx context.Context, userID, productID uuid.UUID) (AddOrIncrementResult, error)
	Remove(ctx context.Context, userID, lineID uuid.UUID) error
	SetQuantity(ctx context.Context, params SetQuantityParams) (model.CartLineWithProduct, error)
	// ReconcileCart clamps lines that ask for more than the stock on hand,
	// persists the clamp and returns the cart with subtotals.
	ReconcileCart(ctx context.Context, userID uuid.UUID) (CartView, error)
	// Purchase converts every in-cart line of the user into a stock decrement
	// in a single transaction.
	Purchase(ctx context.Context, userID uuid.UUID) (Receipt, error)
}

type cartService struct {
	cfg           config.Cart
	logger        *slog.Logger
	db            db.DB
	productRepo   repository.ProductRepository
	cartLineRepo  repository.CartLineRepository
	outboxMsgRepo repository.OutboxMsgRepository
	ledger        StockLedger
	notifier      ItemAddedNotifier
}

// NewCartService creates the cart service. notifier may be nil.
func NewCartService(
	cfg config.Cart,
	logger *slog.Logger,
	db db.DB,
	productRepo repository.ProductRepository,
	cartLineRepo repository.CartLineRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	ledger StockLedger,
	notifier ItemAddedNotifier,
) CartService {
	return &cartService{
		cfg:           cfg,
		logger:        logger.With(slog.String("service", "cart")),
		db:            db,
		productRepo:   productRepo,
		cartLineRepo:  cartLineRepo,
		outboxMsgRepo: outboxMsgRepo,
		ledger:        ledger,
		notifier:      notifier,
	}
}

func (s *cartService) AddOrIncrement(ctx context.Context, userID, productID uuid.UUID) (AddOrIncrementResult, error) {
	var result AddOrIncrementResult

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		product, err := s.productRepo.WithDB(db).GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ProductNotFoundErr
			}
			return fmt.Errorf("product repository get product: %w", err)
		}

		if !product.InStock() {
			return apperr.OutOfStockErr.WithMsg(fmt.Sprintf("%s is out of stock", product.Name))
		}

		lines := s.cartLineRepo.WithDB(db)
		findParams := repository.FindCartLineParams{
			UserID:    userID,
			ProductID: productID,
			Status:    model.CartLineStatusInCart,
			ForUpdate: true,
		}

		line, err := lines.FindCartLine(ctx, findParams)
		if errors.Is(err, repository.ErrNotFound) {
			newLine, err := newCartLine(userID, productID)
			if err != nil {
				return err
			}

			created, err := lines.CreateCartLine(ctx, newLine)
			if err != nil {
				return fmt.Errorf("cart line repository create cart line: %w", err)
			}
			if created {
				result = AddOrIncrementResult{Line: newLine, Product: product, Created: true}
				return nil
			}

			// A concurrent request inserted the line first; increment it instead.
			line, err = lines.FindCartLine(ctx, findParams)
			if err != nil {
				return fmt.Errorf("cart line repository find cart line after conflict: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("cart line repository find cart line: %w", err)
		}

		if line.Quantity.GreaterThanOrEqual(product.Quantity) {
			return apperr.NewInsufficientStock(apperr.StockShortage{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity.Add(model.One),
				Available:   product.Quantity,
			})
		}

		line.Quantity = line.Quantity.Add(model.One)
		if err := lines.UpdateCartLineQuantity(ctx, line.ID, line.Quantity); err != nil {
			return fmt.Errorf("cart line repository update cart line quantity: %w", err)
		}

		result = AddOrIncrementResult{Line: line, Product: product, Created: false}
		return nil
	}); err != nil {
		return AddOrIncrementResult{}, fmt.Errorf("add or increment cart line: %w", err)
	}

	s.notifyItemAdded(ctx, ItemAdded(result))

	return result, nil
}

func (s *cartService) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		lines := s.cartLineRepo.WithDB(db)

		line, err := lines.GetCartLine(ctx, repository.GetCartLineParams{
			ID:        lineID,
			UserID:    userID,
			Status:    model.CartLineStatusInCart,
			ForUpdate: true,
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.CartLineNotFoundErr
			}
			return fmt.Errorf("cart line repository get cart line: %w", err)
		}

		if err := lines.DeleteCartLine(ctx, line.ID); err != nil {
			return fmt.Errorf("cart line repository delete cart line: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}

	return nil
}

func (s *cartService) SetQuantity(ctx context.Context, params SetQuantityParams) (model.CartLineWithProduct, error) {
	if params.Quantity.LessThan(model.One) {
		return model.CartLineWithProduct{}, apperr.InvalidQuantityErr.WithMsg("quantity must be at least 1")
	}
	if !hasAtMostPlaces(params.Quantity, model.QuantityPlaces) {
		return model.CartLineWithProduct{}, apperr.InvalidQuantityErr.WithMsg("quantity must have at most 2 decimal places")
	}

	var line model.CartLineWithProduct
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		lines := s.cartLineRepo.WithDB(db)

		var err error
		line, err = lines.GetCartLine(ctx, repository.GetCartLineParams{
			ID:        params.LineID,
			UserID:    params.UserID,
			Status:    model.CartLineStatusInCart,
			ForUpdate: true,
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.CartLineNotFoundErr
			}
			return fmt.Errorf("cart line repository get cart line: %w", err)
		}

		if params.Quantity.GreaterThan(line.Product.Quantity) {
			return apperr.NewInsufficientStock(apperr.StockShortage{
				ProductID:   line.Product.ID,
				ProductName: line.Product.Name,
				Requested:   params.Quantity,
				Available:   line.Product.Quantity,
			})
		}

		// Taking everything on hand is always allowed, even if the stock
		// itself is fractional.
		if !s.allowsFraction(line.Product.Unit) && !params.Quantity.IsInteger() &&
			!params.Quantity.Equal(line.Product.Quantity) {
			return apperr.InvalidQuantityErr.WithMsg(
				fmt.Sprintf("%s is sold in whole %s only", line.Product.Name, line.Product.Unit))
		}

		if err := lines.UpdateCartLineQuantity(ctx, line.ID, params.Quantity); err != nil {
			return fmt.Errorf("cart line repository update cart line quantity: %w", err)
		}
		line.Quantity = params.Quantity

		return nil
	}); err != nil {
		return model.CartLineWithProduct{}, fmt.Errorf("set cart line quantity: %w", err)
	}

	return line, nil
}

func (s *cartService) ReconcileCart(ctx context.Context, userID uuid.UUID) (CartView, error) {
	view := CartView{
		Items:        []CartItem{},
		Total:        decimal.Zero,
		ClampedLines: []ClampedLine{},
	}

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		lines := s.cartLineRepo.WithDB(db)

		cartLines, err := lines.ListCartLines(ctx, repository.ListCartLinesParams{
			UserID:    userID,
			Status:    model.CartLineStatusInCart,
			ForUpdate: true,
		})
		if err != nil {
			return fmt.Errorf("cart line repository list cart lines: %w", err)
		}

		for _, line := range cartLines {
			if line.ExceedsStock() {
				clamp := ClampedLine{
					LineID:      line.ID,
					ProductID:   line.Product.ID,
					ProductName: line.Product.Name,
					From:        line.Quantity,
					To:          line.Product.Quantity,
				}

				if line.Product.Quantity.LessThan(model.MinLineQuantity) {
					if err := lines.DeleteCartLine(ctx, line.ID); err != nil {
						return fmt.Errorf("cart line repository delete cart line: %w", err)
					}
					clamp.Removed = true
					view.ClampedLines = append(view.ClampedLines, clamp)
					continue
				}

				if err := lines.UpdateCartLineQuantity(ctx, line.ID, line.Product.Quantity); err != nil {
					return fmt.Errorf("cart line repository update cart line quantity: %w", err)
				}
				line.Quantity = line.Product.Quantity
				view.ClampedLines = append(view.ClampedLines, clamp)
			}

			subtotal := line.Subtotal()
			view.Items = append(view.Items, CartItem{Line: line, Subtotal: subtotal})
			view.Total = view.Total.Add(subtotal)
		}

		return nil
	}); err != nil {
		return CartView{}, fmt.Errorf("reconcile cart: %w", err)
	}

	view.Clamped = len(view.ClampedLines) > 0
	if view.Clamped {
		s.logger.InfoContext(ctx, "cart lines clamped to available stock",
			slog.String("user_id", userID.String()),
			slog.Int("count", len(view.ClampedLines)))
	}

	return view, nil
}

func (s *cartService) Purchase(ctx context.Context, userID uuid.UUID) (Receipt, error) {
	receipt := Receipt{
		Lines: []ReceiptLine{},
		Total: decimal.Zero,
	}

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		lines := s.cartLineRepo.WithDB(db)

		cartLines, err := lines.ListCartLines(ctx, repository.ListCartLinesParams{
			UserID:    userID,
			Status:    model.CartLineStatusInCart,
			ForUpdate: true,
		})
		if err != nil {
			return fmt.Errorf("cart line repository list cart lines: %w", err)
		}

		if len(cartLines) == 0 {
			return nil
		}

		var shortages []apperr.StockShortage
		for _, line := range cartLines {
			if line.ExceedsStock() {
				shortages = append(shortages, apperr.StockShortage{
					ProductID:   line.Product.ID,
					ProductName: line.Product.Name,
					Requested:   line.Quantity,
					Available:   line.Product.Quantity,
				})
			}
		}
		if len(shortages) > 0 {
			return apperr.NewInsufficientStock(shortages...)
		}

		// The validation above read stock without locking products; the
		// conditional decrement re-checks each product at write time.
		ledger := s.ledger.WithDB(db)
		for _, line := range cartLines {
			remaining, err := ledger.Decrement(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return s.commitFailure(line, err)
			}

			if err := lines.DeleteCartLine(ctx, line.ID); err != nil {
				return fmt.Errorf("cart line repository delete cart line: %w", err)
			}

			subtotal := line.Subtotal()
			receipt.Lines = append(receipt.Lines, ReceiptLine{
				ProductID:      line.Product.ID,
				ProductName:    line.Product.Name,
				Unit:           line.Product.Unit,
				Quantity:       line.Quantity,
				UnitPrice:      line.Product.UnitPrice,
				Subtotal:       subtotal,
				RemainingStock: remaining,
			})
			receipt.Total = receipt.Total.Add(subtotal)
		}

		receipt.PurchasedAt = time.Now()

		payload, err := json.Marshal(cartPurchasedEvent(userID, receipt))
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		partitionKey := userID.String()
		if err := s.outboxMsgRepo.
			WithDB(db).
			CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
				Topic:        event.TopicCartPurchased,
				Headers:      outbox.BuildHeaders(ctx),
				Payload:      payload,
				PartitionKey: &partitionKey,
			}); err != nil {
			return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
		}

		return nil
	}); err != nil {
		return Receipt{}, fmt.Errorf("purchase cart: %w", err)
	}

	if len(receipt.Lines) > 0 {
		s.logger.InfoContext(ctx, "cart purchased",
			slog.String("user_id", userID.String()),
			slog.Int("lines", len(receipt.Lines)),
			slog.String("total", receipt.Total.StringFixed(model.QuantityPlaces)))
	}

	return receipt, nil
}

// commitFailure converts a ledger error raised during the commit phase into
// the error returned to the buyer. The surrounding transaction rolls back
// every decrement already applied.
func (s *cartService) commitFailure(line model.CartLineWithProduct, err error) error {
	switch {
	case errors.Is(err, apperr.InsufficientStockErr):
		shortage := apperr.StockShortage{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			Requested:   line.Quantity,
		}
		var shortageErr *apperr.ShortageError
		if errors.As(err, &shortageErr) && len(shortageErr.Shortages) > 0 {
			shortage.Available = shortageErr.Shortages[0].Available
		}
		return apperr.NewInsufficientStock(shortage)
	case errors.Is(err, apperr.ProductNotFoundErr):
		return apperr.ProductNotFoundErr.WithMsg(fmt.Sprintf("%s is no longer available", line.Product.Name))
	default:
		return fmt.Errorf("stock ledger decrement: %w", err)
	}
}

func (s *cartService) allowsFraction(unit model.Unit) bool {
	return !unit.Countable() && s.cfg.FractionalMeasurableUnits
}

func (s *cartService) notifyItemAdded(ctx context.Context, item ItemAdded) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout())
	defer cancel()

	defer func() {
		if rvr := recover(); rvr != nil {
			s.logger.ErrorContext(ctx, "panic in item added notifier",
				slog.Any("recover", rvr),
				slog.String("cart_line_id", item.Line.ID.String()))
		}
	}()

	if err := s.notifier.NotifyItemAdded(ctx, item); err != nil {
		s.logger.WarnContext(ctx, "error notifying item added",
			slog.String("cart_line_id", item.Line.ID.String()),
			slog.Any("error", err))
	}
}

func (s *cartService) notifyTimeout() time.Duration {
	if s.cfg.NotifyTimeout <= 0 {
		return 2 * time.Second
	}
	return s.cfg.NotifyTimeout
}

func newCartLine(userID, productID uuid.UUID) (model.CartLine, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.CartLine{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	return model.CartLine{
		ID:        id,
		UserID:    userID,
		ProductID: productID,
		Quantity:  model.One,
		Status:    model.CartLineStatusInCart,
		CreatedAt: time.Now(),
	}, nil
}

func cartPurchasedEvent(userID uuid.UUID, receipt Receipt) event.CartPurchasedEvent {
	lines := make([]event.CartPurchasedLine, 0, len(receipt.Lines))
	for _, l := range receipt.Lines {
		lines = append(lines, event.CartPurchasedLine{
			ProductID:      l.ProductID.String(),
			ProductName:    l.ProductName,
			Quantity:       l.Quantity.StringFixed(model.QuantityPlaces),
			UnitPrice:      l.UnitPrice.StringFixed(model.QuantityPlaces),
			Subtotal:       l.Subtotal.StringFixed(model.QuantityPlaces),
			RemainingStock: l.RemainingStock.StringFixed(model.QuantityPlaces),
		})
	}

	return event.CartPurchasedEvent{
		UserID:      userID.String(),
		Lines:       lines,
		Total:       receipt.Total.StringFixed(model.QuantityPlaces),
		PurchasedAt: receipt.PurchasedAt.Format(time.RFC3339Nano),
	}
}
