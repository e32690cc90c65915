// Package backend is a stand-in for the booking REST API. It implements the
// credential endpoints and bearer-protected CRUD the app consumes, so the
// app can run and be tested without the real service.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ghaggin/citas/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Resources served by the generic CRUD routes.
var Resources = []string{
	"citas",
	"medicos",
	"pacientes",
	"especialidades",
	"consultorios",
	"eps",
	"administradores",
	"users",
}

type Backend struct {
	log    *zap.Logger
	server *http.Server
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     *config.Config
	Controller *Controller
}

func New(p Params) (*Backend, error) {
	return &Backend{
		log: p.Log,
		server: &http.Server{
			Addr:    fmt.Sprintf("localhost:%d", p.Config.Backend.Port),
			Handler: Router(p.Controller, p.Config.Backend, p.Log),
		},
	}, nil
}

// Router mounts every endpoint under /api.
func Router(c *Controller, cfg config.Backend, log *zap.Logger) http.Handler {
	h := &handlers{c: c, log: log}

	root := chi.NewRouter()
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	root.Route("/api", func(api chi.Router) {
		// No Auth
		api.Group(func(r chi.Router) {
			if cfg.LoginRateLimit > 0 {
				r.Use(httprate.LimitByIP(cfg.LoginRateLimit, time.Minute))
			}
			r.Post("/login", h.login)
			r.Post("/register", h.register)
		})

		// Auth
		api.Group(func(r chi.Router) {
			r.Use(h.requireToken)
			r.Post("/logout", h.logout)
			r.Get("/me", h.me)
			r.Get("/estadisticas", h.estadisticas)
			r.Get("/medico/mis-citas", h.scoped("citas", "medico_id"))
			r.Get("/medico/mi-agenda", h.scoped("citas", "medico_id"))
			r.Get("/medico/reportes", h.scoped("citas", "medico_id"))
			r.Get("/medico/mis-pacientes", h.scoped("pacientes", "medico_id"))
			r.Get("/paciente/mis-citas", h.scoped("citas", "paciente_id"))
			r.Get("/paciente/mi-historial", h.scoped("citas", "paciente_id"))
			r.Get("/paciente/medicos-disponibles", h.list("medicos"))

			for _, res := range Resources {
				res := res
				r.Get("/"+res, h.list(res))
				r.Post("/"+res, h.create(res))
				r.Get("/"+res+"/{id}", h.get(res))
				r.Put("/"+res+"/{id}", h.update(res))
				r.Delete("/"+res+"/{id}", h.delete(res))
			}
		})
	})

	return root
}

// RegisterHooks should be invoked by fx
func RegisterHooks(lc fx.Lifecycle, b *Backend) {
	lc.Append(fx.Hook{
		OnStart: b.Start,
		OnStop:  b.server.Shutdown,
	})
}

func (b *Backend) Start(_ context.Context) error {
	b.log.Info("stub backend listening", zap.String("addr", b.server.Addr))
	go func() {
		err := b.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			b.log.Error("error starting server", zap.Error(err))
		}
	}()
	return nil
}
