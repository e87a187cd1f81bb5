package reservation

import (
	"context"
	"time"

	"github.com/jhoicas/stock-reservations/internal/domain/entity"
)

// StockService operaciones del motor de inventario que consume el ciclo de vida.
// La implementa inventory.StockUseCase (cada llamada pasa por el ejecutor optimista).
type StockService interface {
	Reserve(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error)
	Release(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error)
	Confirm(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error)
	TryRelease(ctx context.Context, sku string, qty int64) bool
}

// EventType tipo de evento del ciclo de vida de una reserva.
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventConfirmed EventType = "reservation.confirmed"
	EventCancelled EventType = "reservation.cancelled"
	EventExpired   EventType = "reservation.expired"
)

// Event notificación publicada tras cada transición aplicada.
type Event struct {
	Type          EventType                `json:"type"`
	ReservationID string                   `json:"reservation_id"`
	Status        string                   `json:"status"`
	OrderID       string                   `json:"order_id,omitempty"`
	Items         []entity.ReservationItem `json:"items"`
	FailedSKUs    []string                 `json:"failed_skus,omitempty"`
	ExpiresAt     time.Time                `json:"expires_at"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// EventPublisher puerto de salida para eventos (Kafka en producción). Un fallo al publicar
// se registra y no revierte la transición.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Observer recibe contadores del ciclo de vida (lo implementa el adaptador de métricas).
type Observer interface {
	ObserveOutcome(operation, outcome string)
	ObserveSweep(result SweepResult)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

type noopObserver struct{}

func (noopObserver) ObserveOutcome(string, string) {}
func (noopObserver) ObserveSweep(SweepResult)      {}

// Config ventanas de tiempo de las reservas.
type Config struct {
	DefaultTTL     time.Duration // vigencia de una reserva PENDING
	RetainTerminal time.Duration // retención en el almacén tras expirar o pasar a estado terminal
	PendingGrace   time.Duration // margen tras ExpiresAt antes de que el almacén descarte una PENDING
	SettleTimeout  time.Duration // tope de los movimientos de stock posteriores a una transición ya reclamada
}

// DefaultConfig 15 minutos de vigencia, 24 horas de retención, 1 hora de margen, 30 segundos para asentar stock.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:     15 * time.Minute,
		RetainTerminal: 24 * time.Hour,
		PendingGrace:   time.Hour,
		SettleTimeout:  30 * time.Second,
	}
}
