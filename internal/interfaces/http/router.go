package http

import (
	"context"
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/stock-reservations/internal/application/checkout"
	"github.com/jhoicas/stock-reservations/internal/application/inventory"
	"github.com/jhoicas/stock-reservations/internal/application/reservation"
	"github.com/jhoicas/stock-reservations/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	StockUC   *inventory.StockUseCase
	Lifecycle *reservation.LifecycleService
	Reaper    *reservation.Reaper
	Checkout  *checkout.Coordinator
	JWTSecret string
	// Metrics se expone en GET /metrics si no es nil.
	Metrics nethttp.Handler
	// Health verifica los backends (ping a Postgres/Redis); nil = siempre ok.
	Health func(ctx context.Context) error
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Reservas: checkout/órdenes y admin
	reservations := api.Group("/reservations", RequireRole(jwt.RoleCheckout, jwt.RoleAdmin))
	reservationHandler := NewReservationHandler(deps.Lifecycle)
	reservations.Post("/", reservationHandler.Create)
	reservations.Get("/:id", reservationHandler.Get)
	reservations.Get("/:id/valid", reservationHandler.Valid)
	reservations.Post("/:id/confirm", reservationHandler.Confirm)
	reservations.Post("/:id/cancel", reservationHandler.Cancel)

	// Inventario: lectura para cualquier rol autenticado; alta para admin y vendedores
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.StockUC)
	inv.Post("/", RequireRole(jwt.RoleAdmin, jwt.RoleShop), inventoryHandler.Create)
	inv.Get("/:sku", inventoryHandler.Get)
	inv.Get("/:sku/availability", inventoryHandler.Availability)

	// Checkout multi-tienda
	checkoutHandler := NewCheckoutHandler(deps.Checkout)
	api.Post("/checkout/price", RequireRole(jwt.RoleCheckout, jwt.RoleAdmin), checkoutHandler.Price)

	// Admin
	admin := api.Group("/admin", RequireRole(jwt.RoleAdmin))
	adminHandler := NewAdminHandler(deps.Reaper)
	admin.Post("/reaper/sweep", adminHandler.Sweep)
}
