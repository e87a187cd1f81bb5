package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

var _ repository.StockRecordRepository = (*StockRecordStore)(nil)

// StockRecordStore almacén de StockRecord en memoria. El mutex solo hace atómica la primitiva
// compare-and-swap (equivalente al UPDATE ... WHERE version = $n de PostgreSQL); no serializa
// la lógica de negocio, que corre fuera del lock.
type StockRecordStore struct {
	mu      sync.RWMutex
	records map[string]entity.StockRecord
}

// NewStockRecordStore crea un almacén vacío.
func NewStockRecordStore() *StockRecordStore {
	return &StockRecordStore{records: make(map[string]entity.StockRecord)}
}

// GetBySKU devuelve una copia del registro.
func (s *StockRecordStore) GetBySKU(_ context.Context, sku string) (*entity.StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sku]
	if !ok || rec.Deleted {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

// CompareAndSwap reemplaza el registro si la versión almacenada coincide con expectedVersion.
func (s *StockRecordStore) CompareAndSwap(_ context.Context, expectedVersion int64, next *entity.StockRecord) (bool, error) {
	if next == nil {
		return false, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[next.SKU]
	if !ok || cur.Deleted {
		return false, domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return false, nil
	}
	s.records[next.SKU] = *next
	return true, nil
}

// Create registra un SKU nuevo.
func (s *StockRecordStore) Create(_ context.Context, record *entity.StockRecord) error {
	if record == nil || record.SKU == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.SKU]; ok {
		return domain.ErrDuplicate
	}
	s.records[record.SKU] = *record
	return nil
}
