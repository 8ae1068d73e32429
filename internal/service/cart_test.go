package service_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/stock-cart/internal/apperr"
	"github.com/tuanvumaihuynh/stock-cart/internal/config"
	"github.com/tuanvumaihuynh/stock-cart/internal/event"
	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/service"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []service.ItemAdded
	err   error
	panic bool
}

func (n *recordingNotifier) NotifyItemAdded(_ context.Context, item service.ItemAdded) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
	if n.panic {
		panic("notifier exploded")
	}
	return n.err
}

type cartFixture struct {
	store    *memStore
	svc      service.CartService
	notifier *recordingNotifier
	logs     *bytes.Buffer
}

func newCartFixture(t *testing.T, cfg config.Cart, notifier service.ItemAddedNotifier) cartFixture {
	t.Helper()

	store := newMemStore()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))

	productRepo := memProductRepo{store: store}
	svc := service.NewCartService(
		cfg,
		logger,
		store.DB(),
		productRepo,
		memCartLineRepo{store: store},
		memOutboxRepo{store: store},
		service.NewStockLedger(productRepo),
		notifier,
	)

	rn, _ := notifier.(*recordingNotifier)
	return cartFixture{store: store, svc: svc, notifier: rn, logs: logs}
}

func defaultCartConfig() config.Cart {
	return config.Cart{FractionalMeasurableUnits: true, NotifyTimeout: time.Second}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f cartFixture) addProduct(t *testing.T, name, qty string, unit model.Unit) model.Product {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	p := model.Product{
		ID:        id,
		OwnerID:   uuid.New(),
		Name:      name,
		UnitPrice: dec("2.50"),
		Unit:      unit,
		Quantity:  dec(qty),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.store.putProduct(p)
	return p
}

func (f cartFixture) addLine(t *testing.T, userID, productID uuid.UUID, qty string) model.CartLine {
	t.Helper()

	l := model.CartLine{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  dec(qty),
		Status:    model.CartLineStatusInCart,
		CreatedAt: time.Now(),
	}
	f.store.putLine(l)
	return l
}

func (f cartFixture) stock(t *testing.T, productID uuid.UUID) decimal.Decimal {
	t.Helper()

	p, ok := f.store.product(productID)
	require.True(t, ok)
	return p.Quantity
}

func (f cartFixture) lineQty(t *testing.T, lineID uuid.UUID) decimal.Decimal {
	t.Helper()

	l, ok := f.store.line(lineID)
	require.True(t, ok, "cart line %s should exist", lineID)
	return l.Quantity
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestCartService_AddOrIncrement(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Should create a line with quantity one and notify", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), &recordingNotifier{})
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)

		res, err := f.svc.AddOrIncrement(ctx, userID, p.ID)
		require.NoError(t, err)

		assert.True(t, res.Created)
		assertDecimal(t, "1", res.Line.Quantity)
		assert.Equal(t, model.CartLineStatusInCart, res.Line.Status)

		require.Len(t, f.notifier.items, 1)
		assert.True(t, f.notifier.items[0].Created)
		assert.Equal(t, p.ID, f.notifier.items[0].Product.ID)
		assertDecimal(t, "1", f.notifier.items[0].Line.Quantity)
	})

	t.Run("Should keep a single line per user and product", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), &recordingNotifier{})
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)

		for range 3 {
			_, err := f.svc.AddOrIncrement(ctx, userID, p.ID)
			require.NoError(t, err)
		}

		lines := f.store.userLines(userID)
		require.Len(t, lines, 1)
		assertDecimal(t, "3", lines[0].Quantity)

		require.Len(t, f.notifier.items, 3)
		assert.False(t, f.notifier.items[2].Created)
		assertDecimal(t, "3", f.notifier.items[2].Line.Quantity)
	})

	t.Run("Should keep a single line under concurrent adds", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Milk", "50.00", model.UnitLitre)

		var wg sync.WaitGroup
		for range 10 {
			wg.Go(func() {
				_, err := f.svc.AddOrIncrement(ctx, userID, p.ID)
				assert.NoError(t, err)
			})
		}
		wg.Wait()

		lines := f.store.userLines(userID)
		require.Len(t, lines, 1)
		assertDecimal(t, "10", lines[0].Quantity)
	})

	t.Run("Should reject out of stock product", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), &recordingNotifier{})
		p := f.addProduct(t, "Milk", "0.00", model.UnitLitre)

		_, err := f.svc.AddOrIncrement(ctx, userID, p.ID)
		assert.ErrorIs(t, err, apperr.OutOfStockErr)
		assert.Empty(t, f.store.userLines(userID))
		assert.Empty(t, f.notifier.items)
	})

	t.Run("Should reject unknown product", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)

		_, err := f.svc.AddOrIncrement(ctx, userID, uuid.New())
		assert.ErrorIs(t, err, apperr.ProductNotFoundErr)
	})

	t.Run("Should reject increment once the line covers the stock", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), &recordingNotifier{})
		p := f.addProduct(t, "Bread", "2.00", model.UnitPiece)
		line := f.addLine(t, userID, p.ID, "2")

		_, err := f.svc.AddOrIncrement(ctx, userID, p.ID)
		require.ErrorIs(t, err, apperr.InsufficientStockErr)

		var shortage *apperr.ShortageError
		require.ErrorAs(t, err, &shortage)
		require.Len(t, shortage.Shortages, 1)
		assert.Equal(t, "Bread", shortage.Shortages[0].ProductName)

		assertDecimal(t, "2", f.lineQty(t, line.ID))
		assert.Empty(t, f.notifier.items)
	})

	t.Run("Should succeed when the notifier fails", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), &recordingNotifier{err: errors.New("smtp down")})
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)

		res, err := f.svc.AddOrIncrement(ctx, userID, p.ID)
		require.NoError(t, err)

		assertDecimal(t, "1", f.lineQty(t, res.Line.ID))
		assert.Contains(t, f.logs.String(), "error notifying item added")
	})

	t.Run("Should succeed when the notifier panics", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), &recordingNotifier{panic: true})
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)

		res, err := f.svc.AddOrIncrement(ctx, userID, p.ID)
		require.NoError(t, err)

		assertDecimal(t, "1", f.lineQty(t, res.Line.ID))
		assert.Contains(t, f.logs.String(), "panic in item added notifier")
	})
}

func TestCartService_Remove(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Should delete own line", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		line := f.addLine(t, userID, p.ID, "2")

		require.NoError(t, f.svc.Remove(ctx, userID, line.ID))

		_, ok := f.store.line(line.ID)
		assert.False(t, ok)
	})

	t.Run("Should not delete another user's line", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		line := f.addLine(t, uuid.New(), p.ID, "2")

		err := f.svc.Remove(ctx, userID, line.ID)
		assert.ErrorIs(t, err, apperr.CartLineNotFoundErr)

		_, ok := f.store.line(line.ID)
		assert.True(t, ok)
	})

	t.Run("Should not delete purchased line", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		line := f.addLine(t, userID, p.ID, "2")
		line.Status = model.CartLineStatusPurchased
		f.store.putLine(line)

		err := f.svc.Remove(ctx, userID, line.ID)
		assert.ErrorIs(t, err, apperr.CartLineNotFoundErr)
	})

	t.Run("Should report unknown line", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)

		err := f.svc.Remove(ctx, userID, uuid.New())
		assert.ErrorIs(t, err, apperr.CartLineNotFoundErr)
	})
}

func TestCartService_SetQuantity(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name      string
		cfg       config.Cart
		unit      model.Unit
		stock     string
		quantity  string
		wantErr   error
		wantStock string
	}{
		{name: "Should accept quantity equal to stock", unit: model.UnitPiece, stock: "5.00", quantity: "5"},
		{name: "Should reject quantity just above stock", unit: model.UnitLitre, stock: "5.00", quantity: "5.01", wantErr: apperr.InsufficientStockErr},
		{name: "Should reject quantity below one", unit: model.UnitPiece, stock: "5.00", quantity: "0.5", wantErr: apperr.InvalidQuantityErr},
		{name: "Should reject zero", unit: model.UnitPiece, stock: "5.00", quantity: "0", wantErr: apperr.InvalidQuantityErr},
		{name: "Should reject more than two decimal places", unit: model.UnitKilogram, stock: "5.00", quantity: "1.001", wantErr: apperr.InvalidQuantityErr},
		{name: "Should reject fractional pieces", unit: model.UnitPiece, stock: "5.00", quantity: "1.5", wantErr: apperr.InvalidQuantityErr},
		{name: "Should reject fractional packs", unit: model.UnitPack, stock: "5.00", quantity: "2.25", wantErr: apperr.InvalidQuantityErr},
		{name: "Should accept fractional kilograms", unit: model.UnitKilogram, stock: "5.00", quantity: "1.25"},
		{name: "Should accept fractional stock of pieces taken in full", unit: model.UnitPiece, stock: "2.50", quantity: "2.50"},
		{name: "Should reject part of fractional stock of pieces", unit: model.UnitPiece, stock: "2.50", quantity: "1.50", wantErr: apperr.InvalidQuantityErr},
		{name: "Should accept fractional square metres", unit: model.UnitSquareMetre, stock: "5.00", quantity: "4.99"},
		{
			name:     "Should reject fractional litres when disabled",
			cfg:      config.Cart{FractionalMeasurableUnits: false, NotifyTimeout: time.Second},
			unit:     model.UnitLitre,
			stock:    "5.00",
			quantity: "1.5",
			wantErr:  apperr.InvalidQuantityErr,
		},
		{
			name:     "Should accept all fractional litres on hand when disabled",
			cfg:      config.Cart{FractionalMeasurableUnits: false, NotifyTimeout: time.Second},
			unit:     model.UnitLitre,
			stock:    "2.50",
			quantity: "2.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg == (config.Cart{}) {
				cfg = defaultCartConfig()
			}
			f := newCartFixture(t, cfg, nil)
			p := f.addProduct(t, "Thing", tt.stock, tt.unit)
			line := f.addLine(t, userID, p.ID, "1")

			got, err := f.svc.SetQuantity(ctx, service.SetQuantityParams{
				UserID:   userID,
				LineID:   line.ID,
				Quantity: dec(tt.quantity),
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assertDecimal(t, "1", f.lineQty(t, line.ID))
				return
			}

			require.NoError(t, err)
			assertDecimal(t, tt.quantity, got.Quantity)
			assertDecimal(t, tt.quantity, f.lineQty(t, line.ID))
		})
	}

	t.Run("Should not touch another user's line", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Thing", "5.00", model.UnitPiece)
		line := f.addLine(t, uuid.New(), p.ID, "1")

		_, err := f.svc.SetQuantity(ctx, service.SetQuantityParams{
			UserID:   userID,
			LineID:   line.ID,
			Quantity: dec("2"),
		})
		assert.ErrorIs(t, err, apperr.CartLineNotFoundErr)
		assertDecimal(t, "1", f.lineQty(t, line.ID))
	})
}

func TestCartService_ReconcileCart(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Should compute subtotals without clamping", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		milk := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		bread := f.addProduct(t, "Bread", "5.00", model.UnitPiece)
		f.addLine(t, userID, milk.ID, "2")
		f.addLine(t, userID, bread.ID, "1.5")
		f.addLine(t, uuid.New(), bread.ID, "4")

		view, err := f.svc.ReconcileCart(ctx, userID)
		require.NoError(t, err)

		assert.False(t, view.Clamped)
		assert.Empty(t, view.ClampedLines)
		require.Len(t, view.Items, 2)
		assertDecimal(t, "8.75", view.Total)
	})

	t.Run("Should clamp lines above stock and persist", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		line := f.addLine(t, userID, p.ID, "3")
		f.store.setStock(p.ID, dec("2.00"))

		view, err := f.svc.ReconcileCart(ctx, userID)
		require.NoError(t, err)

		assert.True(t, view.Clamped)
		require.Len(t, view.ClampedLines, 1)
		assertDecimal(t, "3", view.ClampedLines[0].From)
		assertDecimal(t, "2", view.ClampedLines[0].To)
		assert.False(t, view.ClampedLines[0].Removed)

		require.Len(t, view.Items, 1)
		assertDecimal(t, "2", view.Items[0].Line.Quantity)
		assertDecimal(t, "5", view.Items[0].Subtotal)
		assertDecimal(t, "5", view.Total)
		assertDecimal(t, "2", f.lineQty(t, line.ID))
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		f.addLine(t, userID, p.ID, "4")
		f.store.setStock(p.ID, dec("1.50"))

		first, err := f.svc.ReconcileCart(ctx, userID)
		require.NoError(t, err)
		assert.True(t, first.Clamped)

		second, err := f.svc.ReconcileCart(ctx, userID)
		require.NoError(t, err)
		assert.False(t, second.Clamped)

		require.Len(t, second.Items, 1)
		assertDecimal(t, first.Items[0].Line.Quantity.String(), second.Items[0].Line.Quantity)
		assertDecimal(t, first.Total.String(), second.Total)
	})

	t.Run("Should drop line when stock ran out", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		line := f.addLine(t, userID, p.ID, "1")
		f.store.setStock(p.ID, decimal.Zero)

		view, err := f.svc.ReconcileCart(ctx, userID)
		require.NoError(t, err)

		assert.True(t, view.Clamped)
		require.Len(t, view.ClampedLines, 1)
		assert.True(t, view.ClampedLines[0].Removed)
		assert.Empty(t, view.Items)
		assertDecimal(t, "0", view.Total)

		_, ok := f.store.line(line.ID)
		assert.False(t, ok)
	})
}

func TestCartService_Purchase(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Should decrement stock and clear the cart", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		milk := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		bread := f.addProduct(t, "Bread", "3.00", model.UnitPiece)
		f.addLine(t, userID, milk.ID, "2.5")
		f.addLine(t, userID, bread.ID, "3")
		other := f.addLine(t, uuid.New(), milk.ID, "1")

		receipt, err := f.svc.Purchase(ctx, userID)
		require.NoError(t, err)

		require.Len(t, receipt.Lines, 2)
		assertDecimal(t, "13.75", receipt.Total)
		assert.False(t, receipt.PurchasedAt.IsZero())

		assertDecimal(t, "2.5", f.stock(t, milk.ID))
		assertDecimal(t, "0", f.stock(t, bread.ID))
		assert.Empty(t, f.store.userLines(userID))
		assertDecimal(t, "1", f.lineQty(t, other.ID))

		assert.Equal(t, []string{event.TopicCartPurchased}, f.store.outboxTopics())
	})

	t.Run("Should do nothing for an empty cart", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)

		receipt, err := f.svc.Purchase(ctx, userID)
		require.NoError(t, err)

		assert.Empty(t, receipt.Lines)
		assertDecimal(t, "0", receipt.Total)
		assert.Empty(t, f.store.outboxTopics())
	})

	t.Run("Should abort on validation and name every short product", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		milk := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		bread := f.addProduct(t, "Bread", "1.00", model.UnitPiece)
		eggs := f.addProduct(t, "Eggs", "2.00", model.UnitPack)
		milkLine := f.addLine(t, userID, milk.ID, "2")
		f.addLine(t, userID, bread.ID, "2")
		f.addLine(t, userID, eggs.ID, "3")

		_, err := f.svc.Purchase(ctx, userID)
		require.ErrorIs(t, err, apperr.InsufficientStockErr)

		var shortage *apperr.ShortageError
		require.ErrorAs(t, err, &shortage)
		names := []string{}
		for _, s := range shortage.Shortages {
			names = append(names, s.ProductName)
		}
		assert.ElementsMatch(t, []string{"Bread", "Eggs"}, names)

		assertDecimal(t, "5", f.stock(t, milk.ID))
		assertDecimal(t, "1", f.stock(t, bread.ID))
		assertDecimal(t, "2", f.stock(t, eggs.ID))
		assert.Len(t, f.store.userLines(userID), 3)
		assertDecimal(t, "2", f.lineQty(t, milkLine.ID))
		assert.Empty(t, f.store.outboxTopics())
	})

	t.Run("Should roll back when stock runs out between validation and commit", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		first := f.addProduct(t, "First", "5.00", model.UnitPiece)
		second := f.addProduct(t, "Second", "5.00", model.UnitPiece)
		// products are processed in id order; uuid v7 ids grow over time
		require.Negative(t, bytes.Compare(first.ID[:], second.ID[:]))

		firstLine := f.addLine(t, userID, first.ID, "2")
		secondLine := f.addLine(t, userID, second.ID, "3")

		f.store.beforeDecrement = func(productID uuid.UUID) {
			if productID == second.ID {
				f.store.concurrentSetStock(second.ID, dec("1.00"))
			}
		}

		_, err := f.svc.Purchase(ctx, userID)
		require.ErrorIs(t, err, apperr.InsufficientStockErr)

		var shortage *apperr.ShortageError
		require.ErrorAs(t, err, &shortage)
		require.Len(t, shortage.Shortages, 1)
		assert.Equal(t, "Second", shortage.Shortages[0].ProductName)
		assertDecimal(t, "1", shortage.Shortages[0].Available)

		assertDecimal(t, "5", f.stock(t, first.ID))
		assertDecimal(t, "1", f.stock(t, second.ID))
		assertDecimal(t, "2", f.lineQty(t, firstLine.ID))
		assertDecimal(t, "3", f.lineQty(t, secondLine.ID))
		assert.Empty(t, f.store.outboxTopics())
	})

	t.Run("Should let only one of two competing buyers win", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		p := f.addProduct(t, "Paint", "5.00", model.UnitLitre)
		u1, u2 := uuid.New(), uuid.New()

		for range 3 {
			_, err := f.svc.AddOrIncrement(ctx, u1, p.ID)
			require.NoError(t, err)
		}
		for range 4 {
			_, err := f.svc.AddOrIncrement(ctx, u2, p.ID)
			require.NoError(t, err)
		}

		u1Lines := f.store.userLines(u1)
		require.Len(t, u1Lines, 1)
		assertDecimal(t, "3", u1Lines[0].Quantity)

		var (
			wg   sync.WaitGroup
			errs = make([]error, 2)
		)
		for i, u := range []uuid.UUID{u1, u2} {
			wg.Go(func() {
				_, errs[i] = f.svc.Purchase(ctx, u)
			})
		}
		wg.Wait()

		var succeeded, failed int
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, apperr.InsufficientStockErr)
			failed++
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, failed)

		remaining := f.stock(t, p.ID)
		if errs[0] == nil {
			assertDecimal(t, "2", remaining)
			assert.Empty(t, f.store.userLines(u1))
			assert.Len(t, f.store.userLines(u2), 1)
		} else {
			assertDecimal(t, "1", remaining)
			assert.Empty(t, f.store.userLines(u2))
			assert.Len(t, f.store.userLines(u1), 1)
		}
		assert.False(t, remaining.IsNegative())
	})

	t.Run("Should exclude removed lines", func(t *testing.T) {
		f := newCartFixture(t, defaultCartConfig(), nil)
		milk := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		bread := f.addProduct(t, "Bread", "1.00", model.UnitPiece)
		f.addLine(t, userID, milk.ID, "1")
		breadLine := f.addLine(t, userID, bread.ID, "4")

		require.NoError(t, f.svc.Remove(ctx, userID, breadLine.ID))

		receipt, err := f.svc.Purchase(ctx, userID)
		require.NoError(t, err)

		require.Len(t, receipt.Lines, 1)
		assert.Equal(t, milk.ID, receipt.Lines[0].ProductID)
		assertDecimal(t, "4", f.stock(t, milk.ID))
		assertDecimal(t, "1", f.stock(t, bread.ID))
	})

	t.Run("Should roll back when the outbox write fails", func(t *testing.T) {
		store := newMemStore()
		productRepo := memProductRepo{store: store}
		svc := service.NewCartService(
			defaultCartConfig(),
			slog.New(slog.DiscardHandler),
			store.DB(),
			productRepo,
			memCartLineRepo{store: store},
			memOutboxRepo{store: store, err: errors.New("disk full")},
			service.NewStockLedger(productRepo),
			nil,
		)
		f := cartFixture{store: store, svc: svc}
		p := f.addProduct(t, "Milk", "5.00", model.UnitLitre)
		line := f.addLine(t, userID, p.ID, "2")

		_, err := svc.Purchase(ctx, userID)
		assert.ErrorContains(t, err, "disk full")

		assertDecimal(t, "5", f.stock(t, p.ID))
		assertDecimal(t, "2", f.lineQty(t, line.ID))
	})
}
