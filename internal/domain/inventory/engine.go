package inventory

import (
	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
)

// Transform es una transformación pura de StockRecord (servicio de dominio).
// Recibe una copia del registro leído y devuelve los contadores siguientes; no toca Version
// ni UpdatedAt (eso lo hace el ejecutor optimista). Puede reaplicarse en cada reintento.
type Transform func(current entity.StockRecord) (*entity.StockRecord, error)

// ValidateQuantity rechaza cantidades cero o negativas antes de cualquier acceso al almacén.
func ValidateQuantity(qty int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// HasSufficientStock verifica QuantityAvailable >= qty. Solo lectura.
func HasSufficientStock(record *entity.StockRecord, qty int64) bool {
	return record != nil && record.QuantityAvailable >= qty
}

// ClampedQuantity devuelve min(held, requested): lo que realmente puede liberarse o confirmarse.
func ClampedQuantity(held, requested int64) int64 {
	if held < requested {
		if held < 0 {
			return 0
		}
		return held
	}
	return requested
}

// Reserve mueve qty de disponible a reservado.
// ErrInsufficientStock (como *domain.InsufficientStockError) si Available < qty.
func Reserve(qty int64) Transform {
	return func(current entity.StockRecord) (*entity.StockRecord, error) {
		if err := ValidateQuantity(qty); err != nil {
			return nil, err
		}
		if !HasSufficientStock(&current, qty) {
			return nil, &domain.InsufficientStockError{
				SKU:       current.SKU,
				Available: current.QuantityAvailable,
				Requested: qty,
			}
		}
		next := current.Clone()
		next.QuantityAvailable -= qty
		next.QuantityReserved += qty
		return next, nil
	}
}

// Release devuelve min(Reserved, qty) de reservado a disponible.
// Tolera pedidos de liberación mayores a lo reservado (reintentos, fallos parciales): nunca queda negativo.
func Release(qty int64) Transform {
	return func(current entity.StockRecord) (*entity.StockRecord, error) {
		if err := ValidateQuantity(qty); err != nil {
			return nil, err
		}
		actual := ClampedQuantity(current.QuantityReserved, qty)
		next := current.Clone()
		next.QuantityReserved -= actual
		next.QuantityAvailable += actual
		return next, nil
	}
}

// Confirm mueve min(Reserved, qty) de reservado a vendido.
// Available no cambia: ya se descontó al reservar.
func Confirm(qty int64) Transform {
	return func(current entity.StockRecord) (*entity.StockRecord, error) {
		if err := ValidateQuantity(qty); err != nil {
			return nil, err
		}
		actual := ClampedQuantity(current.QuantityReserved, qty)
		next := current.Clone()
		next.QuantityReserved -= actual
		next.QuantitySold += actual
		return next, nil
	}
}
