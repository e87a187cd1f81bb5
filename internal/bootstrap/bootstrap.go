// Package bootstrap arma el grafo de dependencias a partir de la configuración:
// backends de stock y reservas, ejecutor optimista, ciclo de vida, reaper y checkout.
// Lo comparten el servidor HTTP y el comando de barrido puntual.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-reservations/internal/application/checkout"
	appinv "github.com/jhoicas/stock-reservations/internal/application/inventory"
	"github.com/jhoicas/stock-reservations/internal/application/reservation"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
	"github.com/jhoicas/stock-reservations/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-reservations/internal/infrastructure/memory"
	"github.com/jhoicas/stock-reservations/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-reservations/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-reservations/internal/infrastructure/redis"
	"github.com/jhoicas/stock-reservations/pkg/config"
	"github.com/jhoicas/stock-reservations/pkg/logger"
)

// App componentes listos para usar. Close libera conexiones y el writer de Kafka.
type App struct {
	StockUC   *appinv.StockUseCase
	Lifecycle *reservation.LifecycleService
	Reaper    *reservation.Reaper
	Checkout  *checkout.Coordinator
	Metrics   *metrics.Collector

	pool      *pgxpool.Pool
	redis     *goredis.Client
	publisher *kafka.EventPublisher
}

// Build conecta los backends configurados y construye los casos de uso.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	app := &App{Metrics: metrics.New()}

	var (
		stockRepo repository.StockRecordRepository
		prices    repository.PriceLookup
	)
	switch cfg.Storage.Stock {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		app.pool = pool
		stockRepo = postgres.NewStockRecordRepository(pool)
		prices = postgres.NewProductVariantRepository(pool)
	default:
		stockRepo = memory.NewStockRecordStore()
		prices = memory.NewVariantCatalog()
		log.Warn().Msg("STOCK_BACKEND=memory: los contadores no sobreviven al reinicio")
	}

	var reservations repository.ReservationRepository
	switch cfg.Storage.Reservations {
	case "redis":
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("conexión a Redis: %w", err)
		}
		app.redis = client
		reservations = infraredis.NewReservationStore(client, cfg.Redis.KeyPrefix)
	default:
		reservations = memory.NewReservationStore(nil)
		log.Warn().Msg("RESERVATION_BACKEND=memory: las reservas no sobreviven al reinicio")
	}

	policy := appinv.RetryPolicy{
		MaxRetries:        cfg.Reservation.MaxRetries,
		InitialBackoff:    cfg.Reservation.InitialBackoff,
		BackoffMultiplier: cfg.Reservation.BackoffMultiplier,
	}
	exec := appinv.NewOptimisticExecutor(stockRepo, policy, log.Component("optimistic"), appinv.WithRetryObserver(app.Metrics))
	app.StockUC = appinv.NewStockUseCase(stockRepo, exec, log.Component("stock"))

	opts := []reservation.Option{reservation.WithObserver(app.Metrics)}
	if len(cfg.Kafka.Brokers) > 0 {
		app.publisher = kafka.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		opts = append(opts, reservation.WithPublisher(app.publisher))
	}
	app.Lifecycle = reservation.NewLifecycleService(app.StockUC, reservations, reservation.Config{
		DefaultTTL:     cfg.Reservation.DefaultTTL,
		RetainTerminal: cfg.Reservation.RetainTerminal,
		PendingGrace:   cfg.Reservation.PendingGrace,
		SettleTimeout:  cfg.Reservation.SettleTimeout,
	}, log.Component("reservation"), opts...)
	app.Reaper = reservation.NewReaper(app.Lifecycle, reservations, cfg.Reaper.BatchSize, log.Component("reaper"))

	rates, err := checkout.ParseTaxRates(cfg.Checkout.TaxRates)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Checkout = checkout.NewCoordinator(prices, app.Lifecycle, rates, log.Component("checkout"))
	return app, nil
}

// Health hace ping a los backends remotos configurados.
func (a *App) Health(ctx context.Context) error {
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close cierra conexiones en orden inverso a su apertura.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
