package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-reservations/internal/application/dto"
	"github.com/jhoicas/stock-reservations/internal/domain"
)

// statusFor código HTTP por código de error de dominio.
var statusFor = map[string]int{
	"NOT_FOUND":               fiber.StatusNotFound,
	"INSUFFICIENT_STOCK":      fiber.StatusConflict,
	"CONCURRENT_MODIFICATION": fiber.StatusServiceUnavailable,
	"INVALID_STATE":           fiber.StatusConflict,
	"RESERVATION_EXPIRED":     fiber.StatusGone,
	"VALIDATION":              fiber.StatusBadRequest,
	"DUPLICATE":               fiber.StatusConflict,
	"INTERNAL":                fiber.StatusInternalServerError,
}

var messageFor = map[string]string{
	"NOT_FOUND":               "recurso no encontrado",
	"INSUFFICIENT_STOCK":      "stock insuficiente",
	"CONCURRENT_MODIFICATION": "alta concurrencia sobre el inventario, intente de nuevo",
	"INVALID_STATE":           "la reserva ya no admite esta operación",
	"RESERVATION_EXPIRED":     "la reserva expiró, reintente el checkout",
	"DUPLICATE":               "el recurso ya existe",
}

// errorResponse construye el cuerpo de error con detalles tipados cuando existen.
func errorResponse(err error) (int, dto.ErrorResponse) {
	code := domain.ErrorCode(err)
	resp := dto.ErrorResponse{Code: code, Message: err.Error()}
	if msg, ok := messageFor[code]; ok {
		resp.Message = msg
	}

	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		resp.Details = map[string]any{
			"sku":       insufficient.SKU,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		}
	}
	var failed *domain.ReservationFailedError
	if errors.As(err, &failed) {
		if resp.Details == nil {
			resp.Details = map[string]any{}
		}
		resp.Details["failed_skus"] = failed.FailedSKUs
	}
	if code == "CONCURRENT_MODIFICATION" {
		if resp.Details == nil {
			resp.Details = map[string]any{}
		}
		resp.Details["retryable"] = true
	}

	status, ok := statusFor[code]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	return status, resp
}

func writeError(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
