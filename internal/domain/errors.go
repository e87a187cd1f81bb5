package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrInvalidQuantity        = fmt.Errorf("%w: la cantidad debe ser un entero positivo", ErrInvalidInput)
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrConcurrentModification = errors.New("modificación concurrente: reintentos agotados, intente de nuevo")
	ErrInvalidState           = errors.New("transición inválida para el estado actual de la reserva")
	// ErrReservationExpired también satisface errors.Is(err, ErrInvalidState).
	ErrReservationExpired = fmt.Errorf("%w: la reserva expiró, reintente el checkout", ErrInvalidState)
)

// InsufficientStockError detalla la cantidad disponible frente a la solicitada para un SKU.
type InsufficientStockError struct {
	SKU       string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d", e.SKU, e.Available, e.Requested)
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ReservationFailedError se devuelve cuando una reserva multi-ítem no pudo completarse.
// Cause es el error del primer ítem fallido; FailedSKUs lista todos los SKUs que fallaron.
type ReservationFailedError struct {
	FailedSKUs []string
	Cause      error
}

func (e *ReservationFailedError) Error() string {
	return fmt.Sprintf("reserva fallida para [%s]: %v", strings.Join(e.FailedSKUs, ", "), e.Cause)
}

func (e *ReservationFailedError) Unwrap() error { return e.Cause }

// ErrorCode traduce un error de dominio al código estable que ven los clientes (HTTP, resultados por ítem).
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrReservationExpired):
		return "RESERVATION_EXPIRED"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrInvalidInput):
		return "VALIDATION"
	case errors.Is(err, ErrDuplicate):
		return "DUPLICATE"
	default:
		return "INTERNAL"
	}
}
