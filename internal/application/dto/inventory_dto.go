package dto

import "time"

// CreateStockRecordRequest body para POST /api/inventory (alta del StockRecord de un SKU).
type CreateStockRecordRequest struct {
	SKU               string `json:"sku"`
	ShopID            string `json:"shop_id"`
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id"`
	QuantityAvailable int64  `json:"quantity_available"`
}

// StockRecordResponse representación pública de los contadores de un SKU.
type StockRecordResponse struct {
	ID                string    `json:"id"`
	SKU               string    `json:"sku"`
	ShopID            string    `json:"shop_id,omitempty"`
	ProductID         string    `json:"product_id,omitempty"`
	VariantID         string    `json:"variant_id,omitempty"`
	QuantityAvailable int64     `json:"quantity_available"`
	QuantityReserved  int64     `json:"quantity_reserved"`
	QuantitySold      int64     `json:"quantity_sold"`
	Version           int64     `json:"version"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AvailabilityResponse respuesta de GET /api/inventory/:sku/availability (consulta previa, no retiene stock).
type AvailabilityResponse struct {
	SKU        string `json:"sku"`
	Quantity   int64  `json:"quantity"`  // solicitada
	Available  int64  `json:"available"` // disponible al momento de la consulta
	Sufficient bool   `json:"sufficient"`
}
