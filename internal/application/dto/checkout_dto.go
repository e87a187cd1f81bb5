package dto

import "github.com/shopspring/decimal"

// CheckoutItemRequest línea de checkout dentro de una tienda.
type CheckoutItemRequest struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id"`
	SKU         string `json:"sku"`
	Quantity    int64  `json:"quantity"`
	TaxCategory string `json:"tax_category"`
}

// CheckoutShopRequest líneas agrupadas por tienda (multi-vendedor).
type CheckoutShopRequest struct {
	ShopID string                `json:"shop_id"`
	Items  []CheckoutItemRequest `json:"items"`
}

// CheckoutRequest body para POST /api/checkout/price.
type CheckoutRequest struct {
	Shops []CheckoutShopRequest `json:"shops"`
}

// CheckoutItemResult precio y resultado de reserva de una línea.
type CheckoutItemResult struct {
	ProductID     string          `json:"product_id"`
	VariantID     string          `json:"variant_id"`
	SKU           string          `json:"sku"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Reserved      bool            `json:"reserved"`
	ReservationID string          `json:"reservation_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// CheckoutShopResult subtotal e impuestos de una tienda, calculados sobre todas sus líneas
// independientemente del resultado de la reserva.
type CheckoutShopResult struct {
	ShopID      string               `json:"shop_id"`
	Items       []CheckoutItemResult `json:"items"`
	Subtotal    decimal.Decimal      `json:"subtotal"`
	TaxTotal    decimal.Decimal      `json:"tax_total"`
	Total       decimal.Decimal      `json:"total"`
	AllReserved bool                 `json:"all_reserved"`
}

// CheckoutResponse resultado del coordinador de checkout.
type CheckoutResponse struct {
	Shops                []CheckoutShopResult `json:"shops"`
	FailedShops          []string             `json:"failed_shops,omitempty"`
	AllInventoryReserved bool                 `json:"all_inventory_reserved"`
	GrandTotal           decimal.Decimal      `json:"grand_total"`
}
