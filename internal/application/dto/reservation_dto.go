package dto

import "time"

// Estado de cada línea en la respuesta de reserva.
const (
	ItemStatusReserved = "RESERVED"
	ItemStatusFailed   = "FAILED"
	ItemStatusReleased = "RELEASED" // reservada y luego compensada por fallo de otra línea
)

// ReservationItemRequest línea de POST /api/reservations.
type ReservationItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
}

// CreateReservationRequest body para POST /api/reservations.
type CreateReservationRequest struct {
	Items []ReservationItemRequest `json:"items"`
}

// ConfirmReservationRequest body para POST /api/reservations/:id/confirm.
type ConfirmReservationRequest struct {
	OrderID string `json:"order_id"`
}

// ItemStatus resultado por línea de una operación de reserva.
type ItemStatus struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"` // código de error (INSUFFICIENT_STOCK, NOT_FOUND, ...)
}

// ReservationResponse respuesta de reserve(items) -> {reservationId, perItemStatus}.
type ReservationResponse struct {
	ReservationID string       `json:"reservation_id,omitempty"`
	Status        string       `json:"status,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	Items         []ItemStatus `json:"items"`
}

// ReservationDetailResponse representación completa de una reserva.
type ReservationDetailResponse struct {
	ID        string                   `json:"id"`
	Status    string                   `json:"status"`
	OrderID   string                   `json:"order_id,omitempty"`
	Items     []ReservationItemRequest `json:"items"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
	ExpiresAt time.Time                `json:"expires_at"`
	Valid     bool                     `json:"valid"`
}

// TransitionResponse resultado de confirm/cancel: ítems cuya operación de stock falló (se registran, no abortan).
type TransitionResponse struct {
	ReservationID string       `json:"reservation_id"`
	Status        string       `json:"status"`
	FailedItems   []ItemStatus `json:"failed_items,omitempty"`
}

// SweepResponse resultado de una pasada del reaper.
type SweepResponse struct {
	Found    int `json:"found"`
	Released int `json:"released"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
