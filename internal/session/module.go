package session

import (
	"github.com/ghaggin/citas/internal/auth"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		NewManager,
		func(s *auth.Service) AuthService { return s },
	),
)
