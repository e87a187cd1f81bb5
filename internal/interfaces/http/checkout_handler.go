package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-reservations/internal/application/checkout"
	"github.com/jhoicas/stock-reservations/internal/application/dto"
)

// CheckoutHandler precio y reserva de un checkout multi-tienda.
type CheckoutHandler struct {
	coord *checkout.Coordinator
}

// NewCheckoutHandler construye el handler.
func NewCheckoutHandler(coord *checkout.Coordinator) *CheckoutHandler {
	return &CheckoutHandler{coord: coord}
}

// Price godoc
// @Summary      Calcular precio y reservar por línea
// @Description  Cada línea se reserva por separado; los fallos parciales se reportan en la respuesta
//
//	con all_inventory_reserved=false en lugar de abortar el checkout.
//
// @Tags         checkout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckoutRequest  true  "líneas agrupadas por tienda"
// @Success      200   {object}  dto.CheckoutResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/checkout/price [post]
func (h *CheckoutHandler) Price(c *fiber.Ctx) error {
	var in dto.CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	resp, err := h.coord.Price(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}
