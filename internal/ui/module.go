package ui

import (
	"github.com/ghaggin/citas/internal/middleware"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		New,
		middleware.NewSessionManager,
	),
)
