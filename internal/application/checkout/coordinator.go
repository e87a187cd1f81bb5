package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-reservations/internal/application/dto"
	"github.com/jhoicas/stock-reservations/internal/application/reservation"
	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

// Reserver lo que el coordinador necesita del ciclo de vida de reservas.
type Reserver interface {
	Create(ctx context.Context, items []entity.ReservationItem) (*reservation.CreateResult, error)
	Cancel(ctx context.Context, id string) (*reservation.TransitionResult, error)
}

// Coordinator calcula precios de un checkout multi-tienda y reserva cada línea por separado.
// El fallo de una línea o de una tienda nunca aborta a las demás.
type Coordinator struct {
	prices      repository.PriceLookup
	reserver    Reserver
	taxRates    map[string]decimal.Decimal
	concurrency int
	tracer      trace.Tracer
	log         zerolog.Logger
}

// NewCoordinator construye el coordinador. Las categorías sin tasa configurada tributan 0.
func NewCoordinator(prices repository.PriceLookup, reserver Reserver, taxRates map[string]decimal.Decimal, log zerolog.Logger) *Coordinator {
	rates := make(map[string]decimal.Decimal, len(taxRates))
	for k, v := range taxRates {
		rates[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Coordinator{
		prices:      prices,
		reserver:    reserver,
		taxRates:    rates,
		concurrency: 8,
		tracer:      otel.Tracer("github.com/jhoicas/stock-reservations/internal/application/checkout"),
		log:         log,
	}
}

// TaxRate tasa de la categoría (0 si no está configurada).
func (c *Coordinator) TaxRate(category string) decimal.Decimal {
	if rate, ok := c.taxRates[strings.ToLower(strings.TrimSpace(category))]; ok {
		return rate
	}
	return decimal.Zero
}

// Price procesa cada tienda en paralelo. Dentro de una tienda, por línea: precio unitario,
// lineTotal = unitPrice * quantity, reserva de un solo ítem y registro del resultado.
// AllInventoryReserved es el AND sobre todas las líneas; una tienda excluida cuenta como no reservada.
func (c *Coordinator) Price(ctx context.Context, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if len(req.Shops) == 0 {
		return nil, fmt.Errorf("%w: el checkout no tiene tiendas", domain.ErrInvalidInput)
	}
	ctx, span := c.tracer.Start(ctx, "checkout.Price", trace.WithAttributes(attribute.Int("checkout.shops", len(req.Shops))))
	defer span.End()

	results := make([]*dto.CheckoutShopResult, len(req.Shops))
	errs := make([]error, len(req.Shops))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range req.Shops {
		i := i
		g.Go(func() error {
			results[i], errs[i] = c.priceShop(ctx, req.Shops[i])
			return nil
		})
	}
	_ = g.Wait()

	resp := &dto.CheckoutResponse{
		Shops:                make([]dto.CheckoutShopResult, 0, len(req.Shops)),
		AllInventoryReserved: true,
		GrandTotal:           decimal.Zero,
	}
	for i, shop := range req.Shops {
		if errs[i] != nil {
			c.log.Warn().Err(errs[i]).Str("shop_id", shop.ShopID).Msg("tienda excluida del checkout")
			resp.FailedShops = append(resp.FailedShops, shop.ShopID)
			resp.AllInventoryReserved = false
			continue
		}
		res := results[i]
		resp.Shops = append(resp.Shops, *res)
		resp.GrandTotal = resp.GrandTotal.Add(res.Total)
		if !res.AllReserved {
			resp.AllInventoryReserved = false
		}
	}
	span.SetAttributes(
		attribute.Bool("checkout.all_reserved", resp.AllInventoryReserved),
		attribute.Int("checkout.failed_shops", len(resp.FailedShops)),
	)
	return resp, nil
}

func (c *Coordinator) priceShop(ctx context.Context, shop dto.CheckoutShopRequest) (result *dto.CheckoutShopResult, err error) {
	ctx, span := c.tracer.Start(ctx, "checkout.priceShop", trace.WithAttributes(attribute.String("shop.id", shop.ShopID)))
	defer span.End()

	var held []string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic calculando tienda %s: %v", shop.ShopID, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "shop pricing failed")
			c.cancelHeld(ctx, shop.ShopID, held)
			result = nil
		}
	}()

	if strings.TrimSpace(shop.ShopID) == "" || len(shop.Items) == 0 {
		return nil, fmt.Errorf("%w: tienda sin id o sin líneas", domain.ErrInvalidInput)
	}

	res := &dto.CheckoutShopResult{
		ShopID:      shop.ShopID,
		Items:       make([]dto.CheckoutItemResult, 0, len(shop.Items)),
		Subtotal:    decimal.Zero,
		TaxTotal:    decimal.Zero,
		AllReserved: true,
	}
	for _, it := range shop.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: sku %s", domain.ErrInvalidQuantity, it.SKU)
		}
		unitPrice, err := c.prices.GetUnitPrice(ctx, it.VariantID)
		if err != nil {
			return nil, fmt.Errorf("precio de la variante %s: %w", it.VariantID, err)
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(it.Quantity))
		tax := lineTotal.Mul(c.TaxRate(it.TaxCategory)).Round(2)

		line := dto.CheckoutItemResult{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
			TaxAmount: tax,
		}
		created, rerr := c.reserver.Create(ctx, []entity.ReservationItem{{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
		}})
		if rerr != nil {
			line.Reason = domain.ErrorCode(rerr)
			res.AllReserved = false
			c.log.Info().Err(rerr).Str("shop_id", shop.ShopID).Str("sku", it.SKU).Msg("línea sin reserva")
		} else {
			line.Reserved = true
			line.ReservationID = created.Reservation.ID
			held = append(held, created.Reservation.ID)
		}

		res.Items = append(res.Items, line)
		res.Subtotal = res.Subtotal.Add(lineTotal)
		res.TaxTotal = res.TaxTotal.Add(tax)
	}
	res.Total = res.Subtotal.Add(res.TaxTotal)
	span.SetAttributes(attribute.Bool("shop.all_reserved", res.AllReserved))
	return res, nil
}

// cancelHeld libera las reservas de una tienda que quedó fuera del resultado.
func (c *Coordinator) cancelHeld(ctx context.Context, shopID string, ids []string) {
	for _, id := range ids {
		if _, err := c.reserver.Cancel(ctx, id); err != nil {
			c.log.Error().Err(err).Str("shop_id", shopID).Str("reservation_id", id).Msg("no se pudo cancelar la reserva de una tienda excluida")
		}
	}
}

// ParseTaxRates interpreta "standard=0.19,reduced=0.05".
func ParseTaxRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("tasa de impuesto inválida %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("tasa de impuesto %q: %w", name, err)
		}
		if rate.IsNegative() {
			return nil, fmt.Errorf("tasa de impuesto %q negativa", name)
		}
		rates[strings.ToLower(strings.TrimSpace(name))] = rate
	}
	return rates, nil
}
