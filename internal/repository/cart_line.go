package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
)

type GetCartLineParams struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Status    model.CartLineStatus
	ForUpdate bool
}

type FindCartLineParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Status    model.CartLineStatus
	ForUpdate bool
}

type ListCartLinesParams struct {
	UserID uuid.UUID
	Status model.CartLineStatus
	// ForUpdate locks the returned cart lines, not the joined products.
	ForUpdate bool
}

type CartLineRepository interface {
	WithDB(db db.DB) CartLineRepository
	// CreateCartLine inserts the line unless one already exists for the same
	// user, product and status. It reports whether a row was inserted.
	CreateCartLine(ctx context.Context, line model.CartLine) (bool, error)
	GetCartLine(ctx context.Context, params GetCartLineParams) (model.CartLineWithProduct, error)
	FindCartLine(ctx context.Context, params FindCartLineParams) (model.CartLine, error)
	ListCartLines(ctx context.Context, params ListCartLinesParams) ([]model.CartLineWithProduct, error)
	UpdateCartLineQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error
	DeleteCartLine(ctx context.Context, id uuid.UUID) error
}

type cartLineRepository struct {
	db db.DB
}

func NewCartLineRepository(db db.DB) CartLineRepository {
	return &cartLineRepository{
		db: db,
	}
}

func (r cartLineRepository) WithDB(db db.DB) CartLineRepository {
	return &cartLineRepository{
		db: db,
	}
}

const cartLineWithProductColumns = `
	cl.id, cl.user_id, cl.product_id, cl.quantity, cl.status, cl.created_at,
	p.id, p.owner_id, p.name, p.unit_price, p.unit, p.quantity, p.created_at, p.updated_at`

func (r cartLineRepository) CreateCartLine(ctx context.Context, line model.CartLine) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO cart_lines (id, user_id, product_id, quantity, status, created_at)
		VALUES (@id, @user_id, @product_id, @quantity, @status, @created_at)
		ON CONFLICT ON CONSTRAINT cart_lines_user_product_status_key DO NOTHING
	`, pgx.NamedArgs{
		"id":         line.ID,
		"user_id":    line.UserID,
		"product_id": line.ProductID,
		"quantity":   decimalToNumeric(line.Quantity),
		"status":     string(line.Status),
		"created_at": line.CreatedAt,
	})
	if err != nil {
		return false, fmt.Errorf("insert cart line: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r cartLineRepository) GetCartLine(ctx context.Context, params GetCartLineParams) (model.CartLineWithProduct, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+cartLineWithProductColumns+`
		FROM cart_lines AS cl
		JOIN products AS p ON p.id = cl.product_id
		WHERE cl.id = @id
			AND cl.user_id = @user_id
			AND cl.status = @status
	`+lockClause(params.ForUpdate), pgx.NamedArgs{
		"id":      params.ID,
		"user_id": params.UserID,
		"status":  string(params.Status),
	})

	line, err := scanCartLineWithProduct(row)
	if err != nil {
		if db.IsNoRows(err) {
			return model.CartLineWithProduct{}, ErrNotFound
		}
		return model.CartLineWithProduct{}, fmt.Errorf("select cart line: %w", err)
	}

	return line, nil
}

func (r cartLineRepository) FindCartLine(ctx context.Context, params FindCartLineParams) (model.CartLine, error) {
	lock := ""
	if params.ForUpdate {
		lock = "FOR UPDATE"
	}

	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, product_id, quantity, status, created_at
		FROM cart_lines
		WHERE user_id = @user_id
			AND product_id = @product_id
			AND status = @status
	`+lock, pgx.NamedArgs{
		"user_id":    params.UserID,
		"product_id": params.ProductID,
		"status":     string(params.Status),
	})

	line, err := scanCartLine(row)
	if err != nil {
		if db.IsNoRows(err) {
			return model.CartLine{}, ErrNotFound
		}
		return model.CartLine{}, fmt.Errorf("select cart line: %w", err)
	}

	return line, nil
}

func (r cartLineRepository) ListCartLines(ctx context.Context, params ListCartLinesParams) ([]model.CartLineWithProduct, error) {
	// Ordering by product keeps lock acquisition order stable across
	// concurrent purchases touching the same products.
	rows, err := r.db.Query(ctx, `
		SELECT `+cartLineWithProductColumns+`
		FROM cart_lines AS cl
		JOIN products AS p ON p.id = cl.product_id
		WHERE cl.user_id = @user_id
			AND cl.status = @status
		ORDER BY cl.product_id
	`+lockClause(params.ForUpdate), pgx.NamedArgs{
		"user_id": params.UserID,
		"status":  string(params.Status),
	})
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLineWithProduct{}
	for rows.Next() {
		line, err := scanCartLineWithProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return lines, nil
}

func (r cartLineRepository) UpdateCartLineQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE cart_lines SET quantity = $2 WHERE id = $1`, id, decimalToNumeric(quantity))
	if err != nil {
		return fmt.Errorf("update cart line quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r cartLineRepository) DeleteCartLine(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE OF cl"
	}
	return ""
}

func scanCartLine(row pgx.Row) (model.CartLine, error) {
	var (
		l        model.CartLine
		status   string
		quantity pgtype.Numeric
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &quantity, &status, &l.CreatedAt); err != nil {
		return model.CartLine{}, err
	}

	qty, err := numericToDecimal(quantity)
	if err != nil {
		return model.CartLine{}, fmt.Errorf("convert line quantity: %w", err)
	}
	l.Quantity = qty
	l.Status = model.CartLineStatus(status)

	return l, nil
}

func scanCartLineWithProduct(row pgx.Row) (model.CartLineWithProduct, error) {
	var (
		l            model.CartLineWithProduct
		status       string
		lineQuantity pgtype.Numeric
		unit         string
		unitPrice    pgtype.Numeric
		stock        pgtype.Numeric
	)
	if err := row.Scan(
		&l.ID, &l.UserID, &l.ProductID, &lineQuantity, &status, &l.CreatedAt,
		&l.Product.ID, &l.Product.OwnerID, &l.Product.Name, &unitPrice, &unit, &stock,
		&l.Product.CreatedAt, &l.Product.UpdatedAt,
	); err != nil {
		return model.CartLineWithProduct{}, err
	}

	var err error
	if l.Quantity, err = numericToDecimal(lineQuantity); err != nil {
		return model.CartLineWithProduct{}, fmt.Errorf("convert line quantity: %w", err)
	}
	if l.Product.UnitPrice, err = numericToDecimal(unitPrice); err != nil {
		return model.CartLineWithProduct{}, fmt.Errorf("convert unit price: %w", err)
	}
	if l.Product.Quantity, err = numericToDecimal(stock); err != nil {
		return model.CartLineWithProduct{}, fmt.Errorf("convert stock quantity: %w", err)
	}
	l.Status = model.CartLineStatus(status)
	l.Product.Unit = model.Unit(unit)

	return l, nil
}
