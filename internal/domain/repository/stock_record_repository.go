package repository

import (
	"context"

	"github.com/jhoicas/stock-reservations/internal/domain/entity"
)

// StockRecordRepository define el puerto de persistencia para StockRecord con concurrencia optimista.
// Nunca se escribe a ciegas: toda actualización declara la versión que leyó.
type StockRecordRepository interface {
	// GetBySKU devuelve el registro con su versión actual; domain.ErrNotFound si no existe (o está borrado).
	GetBySKU(ctx context.Context, sku string) (*entity.StockRecord, error)
	// CompareAndSwap persiste next solo si la versión almacenada es expectedVersion.
	// Devuelve false (sin error) ante conflicto de versión. next.Version debe ser expectedVersion+1.
	CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.StockRecord) (bool, error)
	// Create registra el StockRecord de un SKU nuevo; domain.ErrDuplicate si el SKU ya existe.
	Create(ctx context.Context, record *entity.StockRecord) error
}
