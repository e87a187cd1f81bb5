package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-reservations/internal/application/dto"
	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-reservations/internal/domain/inventory"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
	"github.com/rs/zerolog"
)

// StockUseCase motor de inventario: valida cantidades contra el StockRecord y aplica las
// transiciones reserve/release/confirm a través del ejecutor optimista.
type StockUseCase struct {
	repo     repository.StockRecordRepository
	executor *OptimisticExecutor
	log      zerolog.Logger
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(repo repository.StockRecordRepository, executor *OptimisticExecutor, log zerolog.Logger) *StockUseCase {
	return &StockUseCase{repo: repo, executor: executor, log: log}
}

func validate(sku string, qty int64) error {
	if strings.TrimSpace(sku) == "" {
		return domain.ErrInvalidInput
	}
	return domaininv.ValidateQuantity(qty)
}

// Reserve descuenta qty de disponible y lo suma a reservado.
// Errores: ErrInvalidQuantity, ErrNotFound, *InsufficientStockError, ErrConcurrentModification.
func (uc *StockUseCase) Reserve(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error) {
	if err := validate(sku, qty); err != nil {
		return nil, err
	}
	res, err := uc.executor.Execute(ctx, sku, domaininv.Reserve(qty))
	if err != nil {
		return nil, err
	}
	return &res.After, nil
}

// Release devuelve hasta qty unidades reservadas a disponible. Si lo reservado es menor que qty
// se libera solo lo reservado y se registra un warning (política log-and-clamp).
func (uc *StockUseCase) Release(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error) {
	if err := validate(sku, qty); err != nil {
		return nil, err
	}
	res, err := uc.executor.Execute(ctx, sku, domaininv.Release(qty))
	if err != nil {
		return nil, err
	}
	uc.warnIfClamped("release", res, qty)
	return &res.After, nil
}

// Confirm mueve hasta qty unidades de reservado a vendido; disponible no cambia.
func (uc *StockUseCase) Confirm(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error) {
	if err := validate(sku, qty); err != nil {
		return nil, err
	}
	res, err := uc.executor.Execute(ctx, sku, domaininv.Confirm(qty))
	if err != nil {
		return nil, err
	}
	uc.warnIfClamped("confirm", res, qty)
	return &res.After, nil
}

// TryRelease variante booleana de Release; los fallos solo se registran.
// La usa la compensación de reservas rechazadas.
func (uc *StockUseCase) TryRelease(ctx context.Context, sku string, qty int64) bool {
	if err := validate(sku, qty); err != nil {
		uc.log.Warn().Err(err).Str("sku", sku).Int64("quantity", qty).Msg("release inválido")
		return false
	}
	return uc.executor.TryExecute(ctx, sku, domaininv.Release(qty))
}

// HasSufficientStock consulta de solo lectura (advisory): Available >= qty.
// No previene carreras; para retener stock hay que pasar por Reserve.
func (uc *StockUseCase) HasSufficientStock(ctx context.Context, sku string, qty int64) (bool, error) {
	if err := validate(sku, qty); err != nil {
		return false, err
	}
	rec, err := uc.repo.GetBySKU(ctx, sku)
	if err != nil {
		return false, err
	}
	return domaininv.HasSufficientStock(rec, qty), nil
}

// ValidateAndGet lectura + verificación de stock previa a una operación que muta; no muta.
// Devuelve *InsufficientStockError si no alcanza.
func (uc *StockUseCase) ValidateAndGet(ctx context.Context, sku string, qty int64) (*entity.StockRecord, error) {
	if err := validate(sku, qty); err != nil {
		return nil, err
	}
	rec, err := uc.repo.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !domaininv.HasSufficientStock(rec, qty) {
		return nil, &domain.InsufficientStockError{SKU: sku, Available: rec.QuantityAvailable, Requested: qty}
	}
	return rec, nil
}

// GetBySKU obtiene el StockRecord actual.
func (uc *StockUseCase) GetBySKU(ctx context.Context, sku string) (*entity.StockRecord, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.repo.GetBySKU(ctx, sku)
}

// CreateStockRecord registra los contadores iniciales de un SKU (alta de producto/variante).
func (uc *StockUseCase) CreateStockRecord(ctx context.Context, in dto.CreateStockRecordRequest) (*entity.StockRecord, error) {
	if strings.TrimSpace(in.SKU) == "" || in.QuantityAvailable < 0 {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetBySKU(ctx, in.SKU)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	rec := &entity.StockRecord{
		ID:                uuid.New().String(),
		SKU:               in.SKU,
		ShopID:            in.ShopID,
		ProductID:         in.ProductID,
		VariantID:         in.VariantID,
		QuantityAvailable: in.QuantityAvailable,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (uc *StockUseCase) warnIfClamped(op string, res *MutationResult, requested int64) {
	actual := res.Before.QuantityReserved - res.After.QuantityReserved
	if actual < requested {
		uc.log.Warn().
			Str("op", op).
			Str("sku", res.After.SKU).
			Int64("requested", requested).
			Int64("applied", actual).
			Msg("cantidad recortada a lo reservado")
	}
}
