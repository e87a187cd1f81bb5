package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ProductVariantRepository = (*VariantCatalog)(nil)

// VariantCatalog catálogo de variantes en memoria (modo desarrollo y tests).
type VariantCatalog struct {
	mu       sync.RWMutex
	variants map[string]entity.ProductVariant
}

// NewVariantCatalog crea un catálogo vacío.
func NewVariantCatalog() *VariantCatalog {
	return &VariantCatalog{variants: make(map[string]entity.ProductVariant)}
}

// Add registra o reemplaza una variante.
func (c *VariantCatalog) Add(v entity.ProductVariant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variants[v.ID] = v
}

// GetByID obtiene una variante por ID.
func (c *VariantCatalog) GetByID(_ context.Context, id string) (*entity.ProductVariant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

// GetUnitPrice devuelve el precio vigente de la variante.
func (c *VariantCatalog) GetUnitPrice(ctx context.Context, variantID string) (decimal.Decimal, error) {
	v, err := c.GetByID(ctx, variantID)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Price, nil
}
