package entity

import "time"

// ReservationStatus estado de una reserva de stock.
type ReservationStatus string

// Estados de la máquina de reservas. PENDING es el único estado no terminal.
const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
)

// IsTerminal indica si el estado ya no admite transiciones.
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationStatusPending
}

// ReservationItem línea de una reserva. Quantity se fija al crear y nunca cambia.
type ReservationItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
}

// Reservation retención temporal de stock sobre uno o más SKUs, pendiente de confirmar como orden.
// Version es independiente de las versiones de StockRecord.
type Reservation struct {
	ID        string            `json:"id"`
	Items     []ReservationItem `json:"items"`
	Status    ReservationStatus `json:"status"`
	OrderID   string            `json:"order_id,omitempty"` // solo al confirmar
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Version   int64             `json:"version"`
}

// IsExpired indica si now ya alcanzó ExpiresAt.
func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsValid true si está PENDING y no ha expirado.
func (r *Reservation) IsValid(now time.Time) bool {
	return r.Status == ReservationStatusPending && !r.IsExpired(now)
}

// Transition devuelve una copia con el nuevo estado y la versión incrementada.
// No valida la transición: eso es responsabilidad del servicio de ciclo de vida.
func (r Reservation) Transition(status ReservationStatus, orderID string, now time.Time) *Reservation {
	r.Items = append([]ReservationItem(nil), r.Items...)
	r.Status = status
	if orderID != "" {
		r.OrderID = orderID
	}
	r.UpdatedAt = now
	r.Version++
	return &r
}
