package http

import (
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/stock-cart/internal/service"
	"github.com/tuanvumaihuynh/stock-cart/pkg/validator"
)

type productHandler struct {
	productSvc service.ProductService
	validator  validator.Validator
}

func newProductHandler(productSvc service.ProductService, v validator.Validator) *productHandler {
	return &productHandler{
		productSvc: productSvc,
		validator:  v,
	}
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	params, err := bindListProductsParams(r)
	if err != nil {
		return err
	}

	products, err := h.productSvc.ListProducts(r.Context(), params)
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}

	items := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		items = append(items, toProductResponse(product))
	}

	return writeJSON(w, http.StatusOK, items)
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	var body CreateProductRequest
	if err := decodeJSON(w, r, h.validator, &body); err != nil {
		return err
	}

	product, err := h.productSvc.CreateProduct(r.Context(), service.CreateProductParams{
		OwnerID:   userID,
		Name:      body.Name,
		UnitPrice: body.UnitPrice,
		Unit:      body.Unit,
		Quantity:  body.Quantity,
	})
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	return writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	productID, err := pathUUID(r, "productId")
	if err != nil {
		return err
	}

	product, err := h.productSvc.GetProduct(r.Context(), productID)
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}

	return writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	productID, err := pathUUID(r, "productId")
	if err != nil {
		return err
	}

	var body UpdateProductRequest
	if err := decodeJSON(w, r, h.validator, &body); err != nil {
		return err
	}

	product, err := h.productSvc.UpdateProduct(r.Context(), service.UpdateProductParams{
		OwnerID:   userID,
		ID:        productID,
		Name:      body.Name,
		UnitPrice: body.UnitPrice,
		Unit:      body.Unit,
		Quantity:  body.Quantity,
	})
	if err != nil {
		return fmt.Errorf("product service update product: %w", err)
	}

	return writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	productID, err := pathUUID(r, "productId")
	if err != nil {
		return err
	}

	if err := h.productSvc.DeleteProduct(r.Context(), service.DeleteProductParams{
		OwnerID: userID,
		ID:      productID,
	}); err != nil {
		return fmt.Errorf("product service delete product: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
