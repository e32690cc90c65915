package auth

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(
		New,
		NewStrategy,
		func(s *Service) Authenticator { return s },
	),
)
