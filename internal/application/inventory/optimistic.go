package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-reservations/internal/domain/inventory"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
	"github.com/rs/zerolog"
)

// RetryPolicy política de reintentos ante conflicto de versión.
type RetryPolicy struct {
	MaxRetries        int           // intentos totales de la unidad leer-transformar-escribir
	InitialBackoff    time.Duration // espera antes del segundo intento
	BackoffMultiplier float64       // factor exponencial entre esperas
}

// DefaultRetryPolicy 3 intentos, backoff exponencial desde 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialBackoff: 100 * time.Millisecond, BackoffMultiplier: 2}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 1 {
		p.MaxRetries = 1
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.BackoffMultiplier < 1 {
		p.BackoffMultiplier = 1
	}
	return p
}

// MutationResult registro leído y registro escrito en el intento que ganó el CAS.
type MutationResult struct {
	Before   entity.StockRecord
	After    entity.StockRecord
	Attempts int
}

// OptimisticExecutor ejecuta "leer por SKU -> transformar -> escribir condicionado a la versión leída"
// como una unidad reintentable. Es genérico sobre la transformación: sirve a reserve, release y confirm.
type OptimisticExecutor struct {
	repo     repository.StockRecordRepository
	policy   RetryPolicy
	observer RetryObserver
	log      zerolog.Logger
	now      func() time.Time
}

// ExecutorOption configura dependencias opcionales del ejecutor.
type ExecutorOption func(*OptimisticExecutor)

// WithRetryObserver registra un observador (métricas) de conflictos y reintentos.
func WithRetryObserver(o RetryObserver) ExecutorOption {
	return func(e *OptimisticExecutor) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithClock reemplaza time.Now para el sello UpdatedAt.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *OptimisticExecutor) { e.now = now }
}

// NewOptimisticExecutor construye el ejecutor sobre el repositorio de stock.
func NewOptimisticExecutor(repo repository.StockRecordRepository, policy RetryPolicy, log zerolog.Logger, opts ...ExecutorOption) *OptimisticExecutor {
	e := &OptimisticExecutor{
		repo:     repo,
		policy:   policy.normalized(),
		observer: noopObserver{},
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute aplica transform sobre el StockRecord del SKU. Ante conflicto de versión reintenta la unidad
// completa desde la lectura, con backoff exponencial. Los errores de negocio (stock insuficiente,
// no encontrado, cantidad inválida) se devuelven sin reintentar. Agotados los intentos devuelve
// domain.ErrConcurrentModification.
func (e *OptimisticExecutor) Execute(ctx context.Context, sku string, transform domaininv.Transform) (*MutationResult, error) {
	if sku == "" {
		return nil, domain.ErrInvalidInput
	}
	backoff := e.policy.InitialBackoff
	for attempt := 1; attempt <= e.policy.MaxRetries; attempt++ {
		current, err := e.repo.GetBySKU(ctx, sku)
		if err != nil {
			return nil, err
		}
		next, err := transform(*current)
		if err != nil {
			return nil, err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = e.now()

		ok, err := e.repo.CompareAndSwap(ctx, current.Version, next)
		if err != nil {
			return nil, err
		}
		if ok {
			e.observer.ObserveAttempts(attempt)
			return &MutationResult{Before: *current, After: *next, Attempts: attempt}, nil
		}

		e.observer.ObserveConflict(sku)
		e.log.Debug().
			Str("sku", sku).
			Int("attempt", attempt).
			Int64("version", current.Version).
			Msg("conflicto de versión en stock")

		if attempt == e.policy.MaxRetries {
			break
		}
		if err := sleepContext(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = time.Duration(float64(backoff) * e.policy.BackoffMultiplier)
	}

	e.observer.ObserveExhausted(sku)
	e.observer.ObserveAttempts(e.policy.MaxRetries)
	e.log.Warn().Str("sku", sku).Int("attempts", e.policy.MaxRetries).Msg("reintentos optimistas agotados")
	return nil, fmt.Errorf("%w: sku %s tras %d intentos", domain.ErrConcurrentModification, sku, e.policy.MaxRetries)
}

// TryExecute variante booleana: colapsa errores de negocio y transitorios a false y solo los registra.
func (e *OptimisticExecutor) TryExecute(ctx context.Context, sku string, transform domaininv.Transform) bool {
	if _, err := e.Execute(ctx, sku, transform); err != nil {
		e.log.Warn().Err(err).Str("sku", sku).Msg("operación de stock fallida")
		return false
	}
	return true
}

// sleepContext espera d sin busy-spin; retorna antes si ctx se cancela.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
