// Comando reaper: una pasada de liberación de reservas vencidas, para cron o ejecución manual.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/stock-reservations/internal/bootstrap"
	"github.com/jhoicas/stock-reservations/pkg/config"
	"github.com/jhoicas/stock-reservations/pkg/logger"
	"github.com/jhoicas/stock-reservations/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-reaper"})

	shutdownTracing, err := tracing.Init(cfg.App.Name+"-reaper", cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar tracing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("construir dependencias")
	}

	res, sweepErr := deps.Reaper.Sweep(ctx)
	if sweepErr != nil {
		log.Error().Err(sweepErr).Msg("barrido fallido")
	} else {
		log.Info().
			Int("found", res.Found).
			Int("released", res.Released).
			Int("skipped", res.Skipped).
			Int("failed", res.Failed).
			Msg("barrido completado")
	}

	if err := deps.Close(); err != nil {
		log.Error().Err(err).Msg("cierre de conexiones")
	}
	_ = shutdownTracing(context.Background())
	if sweepErr != nil || res.Failed > 0 {
		os.Exit(1)
	}
}
