package entity

import "time"

// StockRecord representa los contadores de stock de un SKU (variante de producto de una tienda).
// Los tres contadores se almacenan de forma independiente; no existe un "total" persistido.
// Version es el token de concurrencia optimista: toda escritura exitosa lo incrementa en 1.
type StockRecord struct {
	ID                string
	SKU               string // clave de negocio única
	ShopID            string
	ProductID         string
	VariantID         string
	QuantityAvailable int64
	QuantityReserved  int64
	QuantitySold      int64
	Version           int64
	Deleted           bool // borrado lógico; nunca se elimina físicamente
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone devuelve una copia por valor; las transformaciones del motor trabajan sobre copias.
func (s StockRecord) Clone() *StockRecord {
	return &s
}

// IsConsistent verifica que ningún contador sea negativo.
func (s *StockRecord) IsConsistent() bool {
	return s.QuantityAvailable >= 0 && s.QuantityReserved >= 0 && s.QuantitySold >= 0
}
