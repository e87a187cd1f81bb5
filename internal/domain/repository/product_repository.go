package repository

import (
	"context"

	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PriceLookup puerto de consulta de precio unitario vigente, propiedad del catálogo de productos.
type PriceLookup interface {
	GetUnitPrice(ctx context.Context, variantID string) (decimal.Decimal, error)
}

// ProductVariantRepository define el puerto de lectura de variantes (DIP).
type ProductVariantRepository interface {
	PriceLookup
	GetByID(ctx context.Context, id string) (*entity.ProductVariant, error)
}
