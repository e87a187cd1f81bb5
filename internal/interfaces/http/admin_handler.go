package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-reservations/internal/application/dto"
	"github.com/jhoicas/stock-reservations/internal/application/reservation"
)

// AdminHandler operaciones manuales de mantenimiento (solo rol admin).
type AdminHandler struct {
	reaper *reservation.Reaper
}

// NewAdminHandler construye el handler.
func NewAdminHandler(reaper *reservation.Reaper) *AdminHandler {
	return &AdminHandler{reaper: reaper}
}

// Sweep godoc
// @Summary      Ejecutar una pasada del reaper
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SweepResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/admin/reaper/sweep [post]
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	res, err := h.reaper.Sweep(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SweepResponse{Found: res.Found, Released: res.Released, Skipped: res.Skipped, Failed: res.Failed})
}
