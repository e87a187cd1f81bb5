package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRecordRepo)(nil)

const stockRecordColumns = `id, sku, shop_id, product_id, variant_id,
		quantity_available, quantity_reserved, quantity_sold, version, deleted, created_at, updated_at`

const stockRecordSelect = `id, sku, COALESCE(shop_id, ''), COALESCE(product_id, ''), COALESCE(variant_id, ''),
		quantity_available, quantity_reserved, quantity_sold, version, deleted, created_at, updated_at`

// StockRecordRepo StockRecordRepository sobre PostgreSQL con concurrencia optimista por columna version.
// Nunca bloquea filas: la escritura se condiciona a la versión leída.
type StockRecordRepo struct {
	q Querier
}

// NewStockRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockRecordRepository(q Querier) *StockRecordRepo {
	return &StockRecordRepo{q: q}
}

// GetBySKU lee el registro vigente (no borrado) con su versión.
func (r *StockRecordRepo) GetBySKU(ctx context.Context, sku string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockRecordSelect + `
		FROM stock_records WHERE sku = $1 AND NOT deleted`
	var s entity.StockRecord
	err := r.q.QueryRow(ctx, query, sku).Scan(
		&s.ID, &s.SKU, &s.ShopID, &s.ProductID, &s.VariantID,
		&s.QuantityAvailable, &s.QuantityReserved, &s.QuantitySold, &s.Version, &s.Deleted,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	return &s, nil
}

// CompareAndSwap escribe next solo si la fila conserva expectedVersion.
// 0 filas afectadas = conflicto (otra escritura ganó) o registro inexistente; se distinguen con una lectura.
func (r *StockRecordRepo) CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.StockRecord) (bool, error) {
	if next == nil {
		return false, domain.ErrInvalidInput
	}
	query := `
		UPDATE stock_records
		SET quantity_available = $3, quantity_reserved = $4, quantity_sold = $5,
			version = $6, deleted = $7, updated_at = $8
		WHERE sku = $1 AND version = $2 AND NOT deleted`
	tag, err := r.q.Exec(ctx, query,
		next.SKU, expectedVersion,
		next.QuantityAvailable, next.QuantityReserved, next.QuantitySold,
		next.Version, next.Deleted, next.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("cas stock record: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM stock_records WHERE sku = $1 AND NOT deleted)`, next.SKU).Scan(&exists); err != nil {
		return false, fmt.Errorf("cas stock record: %w", err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

// Create inserta el registro inicial del SKU.
func (r *StockRecordRepo) Create(ctx context.Context, rec *entity.StockRecord) error {
	query := `INSERT INTO stock_records (` + stockRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.SKU, nullIfEmpty(rec.ShopID), nullIfEmpty(rec.ProductID), nullIfEmpty(rec.VariantID),
		rec.QuantityAvailable, rec.QuantityReserved, rec.QuantitySold, rec.Version, rec.Deleted,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert stock record: %w", err)
	}
	return nil
}
