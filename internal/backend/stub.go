package backend

import (
	"context"
	"net/http"

	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/model"
	"github.com/ghaggin/citas/internal/repository"
	"go.uber.org/zap"
)

// StubUser is an account seeded into a stub backend.
type StubUser struct {
	Nombre   string
	Email    string
	Password string
	Tipo     model.Role
}

// NewStub builds an in-memory backend with the given accounts and default
// settings, for tests and local runs.
func NewStub(log *zap.Logger, users ...StubUser) (*Controller, http.Handler, error) {
	return NewStubWithConfig(config.Default().Backend, log, users...)
}

func NewStubWithConfig(cfg config.Backend, log *zap.Logger, users ...StubUser) (*Controller, http.Handler, error) {
	c, err := NewController(ControllerParams{
		Logger: log,
		Repo:   repository.NewMemory(),
		Config: &config.Config{Backend: cfg},
	})
	if err != nil {
		return nil, nil, err
	}

	for _, u := range users {
		if _, _, err := c.CreateAccount(context.Background(), model.User{
			Nombre: u.Nombre,
			Email:  u.Email,
			Tipo:   u.Tipo,
		}, u.Password); err != nil {
			return nil, nil, err
		}
	}

	return c, Router(c, cfg, log), nil
}
