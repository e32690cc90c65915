package backend

import (
	"github.com/ghaggin/citas/internal/repository"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		New,
		NewController,
		repository.NewJSON,
	),
)
