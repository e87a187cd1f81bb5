package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductVariant variante vendible de un producto publicado por una tienda del catálogo.
// El motor de reservas solo consume Price (vía PriceLookup); el resto pertenece al catálogo.
type ProductVariant struct {
	ID          string
	ProductID   string
	ShopID      string
	SKU         string          // enlaza con StockRecord.SKU
	Name        string
	Price       decimal.Decimal // precio unitario vigente
	TaxCategory string          // standard, reduced, exempt
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
