package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
)

type ListProductsParams struct {
	OwnerID      *uuid.UUID
	NameContains *string
	Unit         *model.Unit
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	MinQuantity  *decimal.Decimal
	MaxQuantity  *decimal.Decimal
}

type DecrementStockResult struct {
	Remaining decimal.Decimal
}

type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	CreateProduct(ctx context.Context, product model.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	UpdateProduct(ctx context.Context, product model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	// DecrementStock subtracts amount from the product quantity only if the
	// quantity covers it. It returns ErrStockTooLow when it does not and
	// ErrNotFound when the product is gone.
	DecrementStock(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (DecrementStockResult, error)
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

const productColumns = `id, owner_id, name, unit_price, unit, quantity, created_at, updated_at`

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (@id, @owner_id, @name, @unit_price, @unit, @quantity, @created_at, @updated_at)
	`, pgx.NamedArgs{
		"id":         product.ID,
		"owner_id":   product.OwnerID,
		"name":       product.Name,
		"unit_price": decimalToNumeric(product.UnitPrice),
		"unit":       string(product.Unit),
		"quantity":   decimalToNumeric(product.Quantity),
		"created_at": product.CreatedAt,
		"updated_at": product.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r productRepository) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return r.getProduct(ctx, id, "")
}

func (r productRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return r.getProduct(ctx, id, "FOR UPDATE")
}

func (r productRepository) getProduct(ctx context.Context, id uuid.UUID, lock string) (model.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 `+lock, id)

	product, err := scanProduct(row)
	if err != nil {
		if db.IsNoRows(err) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r productRepository) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	conds := []string{"TRUE"}
	args := pgx.NamedArgs{}

	if params.OwnerID != nil {
		conds = append(conds, "owner_id = @owner_id")
		args["owner_id"] = *params.OwnerID
	}
	if params.NameContains != nil && *params.NameContains != "" {
		conds = append(conds, "name ILIKE '%' || @name || '%'")
		args["name"] = escapeLike(*params.NameContains)
	}
	if params.Unit != nil {
		conds = append(conds, "unit = @unit")
		args["unit"] = string(*params.Unit)
	}
	if params.MinPrice != nil {
		conds = append(conds, "unit_price >= @min_price")
		args["min_price"] = decimalToNumeric(*params.MinPrice)
	}
	if params.MaxPrice != nil {
		conds = append(conds, "unit_price <= @max_price")
		args["max_price"] = decimalToNumeric(*params.MaxPrice)
	}
	if params.MinQuantity != nil {
		conds = append(conds, "quantity >= @min_quantity")
		args["min_quantity"] = decimalToNumeric(*params.MinQuantity)
	}
	if params.MaxQuantity != nil {
		conds = append(conds, "quantity <= @max_quantity")
		args["max_quantity"] = decimalToNumeric(*params.MaxQuantity)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY created_at, id
	`, args)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET
			name       = @name,
			unit_price = @unit_price,
			unit       = @unit,
			quantity   = @quantity,
			updated_at = @updated_at
		WHERE id = @id
	`, pgx.NamedArgs{
		"id":         product.ID,
		"name":       product.Name,
		"unit_price": decimalToNumeric(product.UnitPrice),
		"unit":       string(product.Unit),
		"quantity":   decimalToNumeric(product.Quantity),
		"updated_at": product.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r productRepository) DecrementStock(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (DecrementStockResult, error) {
	// The WHERE clause is re-evaluated against the latest row version after
	// waiting on a concurrent writer's row lock, so two decrements can never
	// both pass on the same stale quantity.
	var remaining pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		UPDATE products
		SET
			quantity   = quantity - @amount,
			updated_at = NOW()
		WHERE id = @id
			AND quantity >= @amount
		RETURNING quantity
	`, pgx.NamedArgs{
		"id":     id,
		"amount": decimalToNumeric(amount),
	}).Scan(&remaining)
	if err == nil {
		qty, err := numericToDecimal(remaining)
		if err != nil {
			return DecrementStockResult{}, fmt.Errorf("convert remaining quantity: %w", err)
		}
		return DecrementStockResult{Remaining: qty}, nil
	}
	if !db.IsNoRows(err) {
		return DecrementStockResult{}, fmt.Errorf("decrement stock: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return DecrementStockResult{}, fmt.Errorf("check product exists: %w", err)
	}
	if !exists {
		return DecrementStockResult{}, ErrNotFound
	}

	return DecrementStockResult{}, ErrStockTooLow
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p         model.Product
		unit      string
		unitPrice pgtype.Numeric
		quantity  pgtype.Numeric
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &unitPrice, &unit, &quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Product{}, err
	}

	var err error
	if p.UnitPrice, err = numericToDecimal(unitPrice); err != nil {
		return model.Product{}, fmt.Errorf("convert unit price: %w", err)
	}
	if p.Quantity, err = numericToDecimal(quantity); err != nil {
		return model.Product{}, fmt.Errorf("convert quantity: %w", err)
	}
	p.Unit = model.Unit(unit)

	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
