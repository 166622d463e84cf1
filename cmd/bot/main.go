package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"emabot/internal/modules/config"
	"emabot/internal/modules/health"
	"emabot/internal/modules/journal"
	"emabot/internal/runner"
	"emabot/pkg/logger"
	"emabot/pkg/tracing"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("emabot")
	tracing.SetServiceName("emabot")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
		// Health before runner: its listener starts first and shuts
		// down last, so /health answers for the whole trading window.
		health.Module(),
		journal.Module(),
		runner.Module(),
	)
	app.Run()
}
