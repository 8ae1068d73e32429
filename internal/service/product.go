package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/apperr"
	"github.com/tuanvumaihuynh/stock-cart/internal/event"
	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/repository"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
	"github.com/tuanvumaihuynh/stock-cart/pkg/outbox"
	"github.com/tuanvumaihuynh/stock-cart/pkg/ptr"
)

type CreateProductParams struct {
	OwnerID   uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Unit      model.Unit
	Quantity  decimal.Decimal
}

// UpdateProductParams carries an owner edit. Nil fields are left unchanged.
type UpdateProductParams struct {
	OwnerID   uuid.UUID
	ID        uuid.UUID
	Name      *string
	UnitPrice *decimal.Decimal
	Unit      *model.Unit
	Quantity  *decimal.Decimal
}

type DeleteProductParams struct {
	OwnerID uuid.UUID
	ID      uuid.UUID
}

type ListProductsParams = repository.ListProductsParams

// ProductLookup resolves a product by id from the persisted catalogue.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
}

type ProductService interface {
	ProductLookup
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	UpdateProduct(ctx context.Context, params UpdateProductParams) (model.Product, error)
	DeleteProduct(ctx context.Context, params DeleteProductParams) error
}

type productService struct {
	db            db.DB
	productRepo   repository.ProductRepository
	outboxMsgRepo repository.OutboxMsgRepository
}

func NewProductService(
	db db.DB,
	productRepo repository.ProductRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
) ProductService {
	return &productService{
		db:            db,
		productRepo:   productRepo,
		outboxMsgRepo: outboxMsgRepo,
	}
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now()
	product := model.Product{
		ID:        id,
		OwnerID:   params.OwnerID,
		Name:      params.Name,
		UnitPrice: params.UnitPrice,
		Unit:      params.Unit,
		Quantity:  params.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateProduct(product); err != nil {
		return model.Product{}, err
	}

	ev := event.ProductCreatedEvent{
		ProductID: product.ID.String(),
		OwnerID:   product.OwnerID.String(),
		Name:      product.Name,
		UnitPrice: product.UnitPrice.StringFixed(model.QuantityPlaces),
		Unit:      string(product.Unit),
		Quantity:  product.Quantity.StringFixed(model.QuantityPlaces),
	}

	evBytes, err := json.Marshal(ev)
	if err != nil {
		return model.Product{}, fmt.Errorf("marshal event: %w", err)
	}

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		if err := s.productRepo.
			WithDB(db).
			CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository create product: %w", err)
		}

		if err := s.outboxMsgRepo.
			WithDB(db).
			CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
				Topic:   event.TopicProductCreated,
				Headers: outbox.BuildHeaders(ctx),
				Payload: evBytes,
			}); err != nil {
			return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := s.productRepo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Product{}, apperr.ProductNotFoundErr
		}
		return model.Product{}, fmt.Errorf("product repository get product: %w", err)
	}

	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	products, err := s.productRepo.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("product repository list products: %w", err)
	}

	return products, nil
}

func (s *productService) UpdateProduct(ctx context.Context, params UpdateProductParams) (model.Product, error) {
	var product model.Product

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		var err error
		product, err = repo.GetProductForUpdate(ctx, params.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ProductNotFoundErr
			}
			return fmt.Errorf("product repository get product for update: %w", err)
		}

		if product.OwnerID != params.OwnerID {
			return apperr.ProductForbiddenErr
		}

		product.Name = ptr.Or(params.Name, product.Name)
		product.UnitPrice = ptr.Or(params.UnitPrice, product.UnitPrice)
		product.Unit = ptr.Or(params.Unit, product.Unit)
		product.Quantity = ptr.Or(params.Quantity, product.Quantity)
		product.UpdatedAt = time.Now()

		if err := validateProduct(product); err != nil {
			return err
		}

		if err := repo.UpdateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, params DeleteProductParams) error {
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		product, err := repo.GetProductForUpdate(ctx, params.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ProductNotFoundErr
			}
			return fmt.Errorf("product repository get product for update: %w", err)
		}

		if product.OwnerID != params.OwnerID {
			return apperr.ProductForbiddenErr
		}

		// cart lines referencing the product go with it (ON DELETE CASCADE)
		if err := repo.DeleteProduct(ctx, product.ID); err != nil {
			return fmt.Errorf("product repository delete product: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	return nil
}

func validateProduct(p model.Product) error {
	switch {
	case p.Name == "" || len([]rune(p.Name)) > 100:
		return apperr.ValidationErr.WithMsg("name must be between 1 and 100 characters")
	case p.UnitPrice.IsNegative():
		return apperr.ValidationErr.WithMsg("unit price must not be negative")
	case p.UnitPrice.GreaterThan(model.MaxAmount):
		return apperr.ValidationErr.WithMsg("unit price must be at most " + model.MaxAmount.StringFixed(model.QuantityPlaces))
	case !hasAtMostPlaces(p.UnitPrice, model.QuantityPlaces):
		return apperr.ValidationErr.WithMsg("unit price must have at most 2 decimal places")
	case p.Unit.Validate() != nil:
		return apperr.ValidationErr.WithMsg(fmt.Sprintf("unknown unit %q", string(p.Unit)))
	case p.Quantity.IsNegative():
		return apperr.InvalidQuantityErr.WithMsg("quantity must not be negative")
	case p.Quantity.GreaterThan(model.MaxAmount):
		return apperr.InvalidQuantityErr.WithMsg("quantity must be at most " + model.MaxAmount.StringFixed(model.QuantityPlaces))
	case !hasAtMostPlaces(p.Quantity, model.QuantityPlaces):
		return apperr.InvalidQuantityErr.WithMsg("quantity must have at most 2 decimal places")
	case p.Unit.Countable() && !p.Quantity.IsInteger():
		return apperr.InvalidQuantityErr.WithMsg(fmt.Sprintf("%s stock must be a whole number", p.Unit))
	}
	return nil
}

func hasAtMostPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}
