package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-reservations/internal/application/dto"
	"github.com/jhoicas/stock-reservations/internal/application/reservation"
	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
)

// ReservationHandler ciclo de vida de reservas: crear, confirmar, cancelar, consultar.
type ReservationHandler struct {
	svc *reservation.LifecycleService
}

// NewReservationHandler construye el handler.
func NewReservationHandler(svc *reservation.LifecycleService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

func toItemStatuses(results []reservation.ItemResult) []dto.ItemStatus {
	out := make([]dto.ItemStatus, 0, len(results))
	for _, r := range results {
		st := dto.ItemStatus{SKU: r.Item.SKU, Quantity: r.Item.Quantity, Status: string(r.Outcome)}
		if r.Err != nil {
			st.Reason = domain.ErrorCode(r.Err)
		}
		out = append(out, st)
	}
	return out
}

func toDetail(r *entity.Reservation, valid bool) dto.ReservationDetailResponse {
	items := make([]dto.ReservationItemRequest, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, dto.ReservationItemRequest{ProductID: it.ProductID, VariantID: it.VariantID, SKU: it.SKU, Quantity: it.Quantity})
	}
	return dto.ReservationDetailResponse{
		ID:        r.ID,
		Status:    string(r.Status),
		OrderID:   r.OrderID,
		Items:     items,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		ExpiresAt: r.ExpiresAt,
		Valid:     valid,
	}
}

// toTransition Reservation puede venir nil si otra transición ganó y el registro ya no se pudo releer.
func toTransition(id string, res *reservation.TransitionResult) dto.TransitionResponse {
	resp := dto.TransitionResponse{ReservationID: id}
	if res.Reservation != nil {
		resp.Status = string(res.Reservation.Status)
	}
	if len(res.FailedItems) > 0 {
		resp.FailedItems = toItemStatuses(res.FailedItems)
	}
	return resp
}

// Create godoc
// @Summary      Reservar stock para un carrito
// @Description  Reserva todas las líneas o ninguna; si alguna falla se compensan las reservadas.
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReservationRequest  true  "líneas sku/quantity"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	items := make([]entity.ReservationItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.ReservationItem{ProductID: it.ProductID, VariantID: it.VariantID, SKU: it.SKU, Quantity: it.Quantity})
	}

	res, err := h.svc.Create(c.UserContext(), items)
	if err != nil {
		status, body := errorResponse(err)
		if res != nil {
			if body.Details == nil {
				body.Details = map[string]any{}
			}
			body.Details["items"] = toItemStatuses(res.Items)
		}
		return c.Status(status).JSON(body)
	}
	r := res.Reservation
	return c.Status(fiber.StatusCreated).JSON(dto.ReservationResponse{
		ReservationID: r.ID,
		Status:        string(r.Status),
		ExpiresAt:     &r.ExpiresAt,
		Items:         toItemStatuses(res.Items),
	})
}

// Confirm godoc
// @Summary      Confirmar reserva como orden
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID de la reserva"
// @Param        body  body  dto.ConfirmReservationRequest  true  "order_id"
// @Success      200   {object}  dto.TransitionResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      410   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/confirm [post]
func (h *ReservationHandler) Confirm(c *fiber.Ctx) error {
	var in dto.ConfirmReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.svc.Confirm(c.UserContext(), c.Params("id"), in.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toTransition(c.Params("id"), res))
}

// Cancel godoc
// @Summary      Cancelar reserva (idempotente)
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.TransitionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	res, err := h.svc.Cancel(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toTransition(c.Params("id"), res))
}

// Valid godoc
// @Summary      ¿Sigue vigente la reserva?
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la reserva"
// @Success      200  {object}  map[string]bool
// @Router       /api/reservations/{id}/valid [get]
func (h *ReservationHandler) Valid(c *fiber.Ctx) error {
	ok, err := h.svc.IsValid(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"valid": ok})
}

// Get godoc
// @Summary      Detalle de una reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id} [get]
func (h *ReservationHandler) Get(c *fiber.Ctx) error {
	r, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "reserva no encontrada o ya purgada"})
		}
		return writeError(c, err)
	}
	return c.JSON(toDetail(r, r.IsValid(h.svc.Now())))
}
