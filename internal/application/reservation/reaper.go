package reservation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

// SweepResult resumen de una pasada del reaper.
type SweepResult struct {
	Found    int
	Released int
	Skipped  int // ya terminales o desaparecidas (p. ej. confirmadas en paralelo)
	Failed   int // errores y reservas expiradas con líneas cuyo stock no se pudo liberar
}

// Reaper libera periódicamente el stock de reservas PENDING vencidas.
type Reaper struct {
	svc       *LifecycleService
	store     repository.ReservationRepository
	batchSize int
	observer  Observer
	log       zerolog.Logger
}

// NewReaper construye el reaper. batchSize <= 0 usa 100.
func NewReaper(svc *LifecycleService, store repository.ReservationRepository, batchSize int, log zerolog.Logger) *Reaper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reaper{svc: svc, store: store, batchSize: batchSize, observer: svc.observer, log: log}
}

// Sweep una pasada: lista hasta batchSize reservas vencidas y llama ReleaseExpired sobre cada una.
// Los fallos individuales se registran y no detienen la pasada; solo un fallo al listar se devuelve.
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := r.svc.tracer.Start(ctx, "reservation.Sweep")
	defer span.End()

	var result SweepResult
	ids, err := r.store.ListExpired(ctx, r.svc.Now(), r.batchSize)
	if err != nil {
		span.RecordError(err)
		r.log.Error().Err(err).Msg("reaper: no se pudieron listar reservas vencidas")
		return result, err
	}
	result.Found = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := r.svc.ReleaseExpired(ctx, id)
		switch {
		case err != nil:
			result.Failed++
			r.log.Warn().Err(err).Str("reservation_id", id).Msg("reaper: no se pudo liberar la reserva")
		case res.Applied && len(res.FailedItems) > 0:
			// La reserva ya quedó EXPIRED pero parte de su stock sigue retenido.
			result.Failed++
			skus := make([]string, 0, len(res.FailedItems))
			for _, f := range res.FailedItems {
				skus = append(skus, f.Item.SKU)
			}
			r.log.Error().Str("reservation_id", id).Strs("failed_skus", skus).Msg("reaper: liberación parcial de la reserva")
		case res.Applied:
			result.Released++
		default:
			result.Skipped++
		}
	}

	r.observer.ObserveSweep(result)
	if result.Found > 0 {
		r.log.Info().
			Int("found", result.Found).
			Int("released", result.Released).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Msg("reaper: pasada completada")
	}
	return result, nil
}

// Run ejecuta Sweep cada interval hasta que ctx se cancele.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	r.log.Info().Dur("interval", interval).Int("batch_size", r.batchSize).Msg("reaper iniciado")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Msg("reaper: pasada fallida")
			}
		case <-ctx.Done():
			r.log.Info().Msg("reaper detenido")
			return
		}
	}
}
