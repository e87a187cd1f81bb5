package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-reservations/internal/application/dto"
	"github.com/jhoicas/stock-reservations/internal/application/inventory"
	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/pkg/jwt"
)

// InventoryHandler consultas de contadores por SKU y alta de StockRecord (protegido).
type InventoryHandler struct {
	uc *inventory.StockUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.StockUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

func toStockRecordResponse(r *entity.StockRecord) dto.StockRecordResponse {
	return dto.StockRecordResponse{
		ID:                r.ID,
		SKU:               r.SKU,
		ShopID:            r.ShopID,
		ProductID:         r.ProductID,
		VariantID:         r.VariantID,
		QuantityAvailable: r.QuantityAvailable,
		QuantityReserved:  r.QuantityReserved,
		QuantitySold:      r.QuantitySold,
		Version:           r.Version,
		UpdatedAt:         r.UpdatedAt,
	}
}

// Get godoc
// @Summary      Contadores de stock de un SKU
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      200  {object}  dto.StockRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{sku} [get]
func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	rec, err := h.uc.GetBySKU(c.UserContext(), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockRecordResponse(rec))
}

// Availability godoc
// @Summary      Verificar disponibilidad
// @Description  Consulta previa al checkout; no retiene stock y el resultado puede cambiar antes de reservar.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        sku       path   string  true  "SKU"
// @Param        quantity  query  int     true  "Cantidad solicitada (> 0)"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{sku}/availability [get]
func (h *InventoryHandler) Availability(c *fiber.Ctx) error {
	sku := c.Params("sku")
	qty := int64(c.QueryInt("quantity", 0))
	rec, err := h.uc.ValidateAndGet(c.UserContext(), sku, qty)
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return c.JSON(dto.AvailabilityResponse{SKU: sku, Quantity: qty, Available: insufficient.Available})
	case err != nil:
		return writeError(c, err)
	}
	return c.JSON(dto.AvailabilityResponse{SKU: sku, Quantity: qty, Available: rec.QuantityAvailable, Sufficient: true})
}

// Create godoc
// @Summary      Alta de StockRecord
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStockRecordRequest  true  "sku, shop_id, quantity_available"
// @Success      201   {object}  dto.StockRecordResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory [post]
func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStockRecordRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	// Un vendedor solo da de alta SKUs de su propia tienda.
	if GetRole(c) == jwt.RoleShop {
		if in.ShopID == "" {
			in.ShopID = GetShopID(c)
		}
		if in.ShopID != GetShopID(c) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "la tienda no coincide con el token"})
		}
	}
	rec, err := h.uc.CreateStockRecord(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockRecordResponse(rec))
}
