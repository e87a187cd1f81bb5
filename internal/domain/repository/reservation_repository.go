package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-reservations/internal/domain/entity"
)

// ReservationRepository define el puerto del almacén de reservas con TTL.
// Es independiente del almacén de stock para que ambos se reintenten por separado.
type ReservationRepository interface {
	// Put guarda la reserva con el TTL indicado (derivado de ExpiresAt - now).
	Put(ctx context.Context, reservation *entity.Reservation, ttl time.Duration) error
	// Get devuelve domain.ErrNotFound si la reserva no existe o su TTL venció.
	Get(ctx context.Context, id string) (*entity.Reservation, error)
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	// CompareAndSwap reemplaza la reserva solo si la versión almacenada es expectedVersion.
	// Devuelve false ante conflicto o si la reserva ya no existe.
	CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.Reservation, ttl time.Duration) (bool, error)
	// ListExpired devuelve hasta limit IDs de reservas PENDING con ExpiresAt < now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}
