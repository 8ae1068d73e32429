package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/stock-cart/internal/apperr"
	"github.com/tuanvumaihuynh/stock-cart/internal/http/metric"
	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/service"
	"github.com/tuanvumaihuynh/stock-cart/pkg/validator"
)

type cartHandler struct {
	cartSvc   service.CartService
	validator validator.Validator
	metrics   *metric.Metrics
}

func newCartHandler(cartSvc service.CartService, v validator.Validator, m *metric.Metrics) *cartHandler {
	return &cartHandler{
		cartSvc:   cartSvc,
		validator: v,
		metrics:   m,
	}
}

func (h *cartHandler) GetCart(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	view, err := h.cartSvc.ReconcileCart(r.Context(), userID)
	if err != nil {
		return fmt.Errorf("cart service reconcile cart: %w", err)
	}

	h.metrics.ClampedLinesTotal.Add(float64(len(view.ClampedLines)))

	return writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *cartHandler) AddCartItem(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	var body AddCartItemRequest
	if err := decodeJSON(w, r, h.validator, &body); err != nil {
		return err
	}

	res, err := h.cartSvc.AddOrIncrement(r.Context(), userID, body.ProductID)
	if err != nil {
		h.observeStockRejection("add", err)
		return fmt.Errorf("cart service add or increment: %w", err)
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	line := toCartLineResponse(lineWithProduct(res))
	return writeJSON(w, status, line)
}

func (h *cartHandler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	lineID, err := pathUUID(r, "lineId")
	if err != nil {
		return err
	}

	var body SetCartItemQuantityRequest
	if err := decodeJSON(w, r, h.validator, &body); err != nil {
		return err
	}

	line, err := h.cartSvc.SetQuantity(r.Context(), service.SetQuantityParams{
		UserID:   userID,
		LineID:   lineID,
		Quantity: body.Quantity,
	})
	if err != nil {
		h.observeStockRejection("set_quantity", err)
		return fmt.Errorf("cart service set quantity: %w", err)
	}

	return writeJSON(w, http.StatusOK, toCartLineResponse(line))
}

func (h *cartHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	lineID, err := pathUUID(r, "lineId")
	if err != nil {
		return err
	}

	if err := h.cartSvc.Remove(r.Context(), userID, lineID); err != nil {
		return fmt.Errorf("cart service remove: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *cartHandler) PurchaseCart(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	receipt, err := h.cartSvc.Purchase(r.Context(), userID)
	if err != nil {
		if h.observeStockRejection("purchase", err) {
			h.metrics.PurchasesTotal.WithLabelValues("rejected").Inc()
		} else {
			h.metrics.PurchasesTotal.WithLabelValues("failed").Inc()
		}
		return fmt.Errorf("cart service purchase: %w", err)
	}

	if len(receipt.Lines) > 0 {
		h.metrics.PurchasesTotal.WithLabelValues("completed").Inc()
		h.metrics.PurchasedLinesTotal.Add(float64(len(receipt.Lines)))
	} else {
		h.metrics.PurchasesTotal.WithLabelValues("empty").Inc()
	}

	return writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

// observeStockRejection counts err when it is a stock rejection and reports
// whether it was one.
func (h *cartHandler) observeStockRejection(operation string, err error) bool {
	var code string
	switch {
	case errors.Is(err, apperr.OutOfStockErr):
		code = apperr.OutOfStockCode
	case errors.Is(err, apperr.InsufficientStockErr):
		code = apperr.InsufficientStockCode
	default:
		return false
	}

	h.metrics.StockRejectionsTotal.WithLabelValues(operation, code).Inc()
	return true
}

func lineWithProduct(res service.AddOrIncrementResult) model.CartLineWithProduct {
	return model.CartLineWithProduct{CartLine: res.Line, Product: res.Product}
}
