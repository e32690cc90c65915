package dashboard

import (
	"github.com/ghaggin/citas/internal/session"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		NewRouter,
		func(m *session.Manager) SessionSource { return m },
	),
)
