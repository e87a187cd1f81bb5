package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-reservations/internal/bootstrap"
	httpRouter "github.com/jhoicas/stock-reservations/internal/interfaces/http"
	"github.com/jhoicas/stock-reservations/pkg/config"
	"github.com/jhoicas/stock-reservations/pkg/logger"
	"github.com/jhoicas/stock-reservations/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("stock_backend", cfg.Storage.Stock).
		Str("reservation_backend", cfg.Storage.Reservations).
		Msg("iniciando aplicación")

	shutdownTracing, err := tracing.Init(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar tracing")
	}

	ctx := context.Background()
	deps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("construir dependencias")
	}

	// Reaper en segundo plano; se detiene con reaperCancel durante el apagado.
	reaperCtx, reaperCancel := context.WithCancel(ctx)
	reaperDone := make(chan struct{})
	if cfg.Reaper.Enabled {
		go func() {
			defer close(reaperDone)
			deps.Reaper.Run(reaperCtx, cfg.Reaper.Interval)
		}()
	} else {
		close(reaperDone)
		log.Warn().Msg("reaper deshabilitado: el stock de reservas vencidas solo se libera con /api/admin/reaper/sweep")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		StockUC:   deps.StockUC,
		Lifecycle: deps.Lifecycle,
		Reaper:    deps.Reaper,
		Checkout:  deps.Checkout,
		JWTSecret: cfg.JWT.Secret,
		Metrics:   deps.Metrics.Handler(),
		Health:    deps.Health,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	reaperCancel()
	<-reaperDone

	if err := deps.Close(); err != nil {
		log.Error().Err(err).Msg("cierre de conexiones")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("flush de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
