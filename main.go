package main

import (
	"flag"

	"github.com/ghaggin/citas/internal/apiclient"
	"github.com/ghaggin/citas/internal/auth"
	"github.com/ghaggin/citas/internal/backend"
	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/dashboard"
	"github.com/ghaggin/citas/internal/logger"
	"github.com/ghaggin/citas/internal/session"
	"github.com/ghaggin/citas/internal/store"
	"github.com/ghaggin/citas/internal/ui"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	var mode = flag.String("mode", string(config.ModeApp), "either app or backend")
	var path = flag.String("config", "", "path to a yaml config file")
	flag.Parse()

	newPath := func() config.Path {
		return config.Path(*path)
	}

	deps := fx.Options(
		fx.Provide(
			config.New,
			logger.New,
			newPath,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)

	var app *fx.App
	switch config.Mode(*mode) {
	case config.ModeApp:
		app = fx.New(
			deps,
			fx.Provide(store.New),
			apiclient.Module,
			auth.Module,
			session.Module,
			dashboard.Module,
			ui.Module,
			fx.Invoke(session.RegisterHooks, ui.RegisterHooks),
		)
	case config.ModeBackend:
		app = fx.New(
			deps,
			backend.Module,
			fx.Invoke(backend.RegisterHooks),
		)
	default:
		panic("unrecognized mode")
	}

	app.Run()
}
