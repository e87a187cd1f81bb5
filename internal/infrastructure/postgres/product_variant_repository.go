package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

var _ repository.ProductVariantRepository = (*ProductVariantRepo)(nil)

// ProductVariantRepo lectura de variantes del catálogo (dueño: servicio de catálogo) para obtener precios.
type ProductVariantRepo struct {
	q Querier
}

// NewProductVariantRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductVariantRepository(q Querier) *ProductVariantRepo {
	return &ProductVariantRepo{q: q}
}

// GetByID obtiene una variante por ID.
func (r *ProductVariantRepo) GetByID(ctx context.Context, id string) (*entity.ProductVariant, error) {
	query := `
		SELECT id, product_id, shop_id, sku, name, price, tax_category, created_at, updated_at
		FROM product_variants WHERE id = $1`
	var v entity.ProductVariant
	err := r.q.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.ProductID, &v.ShopID, &v.SKU, &v.Name, &v.Price, &v.TaxCategory, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product variant: %w", err)
	}
	return &v, nil
}

// GetUnitPrice precio vigente de la variante (NUMERIC -> decimal vía pgx-shopspring-decimal).
func (r *ProductVariantRepo) GetUnitPrice(ctx context.Context, variantID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.q.QueryRow(ctx, `SELECT price FROM product_variants WHERE id = $1`, variantID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("get unit price: %w", err)
	}
	return price, nil
}
