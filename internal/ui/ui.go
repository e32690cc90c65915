// Package ui serves the screens as server-rendered HTML. It only reads the
// mounted screen tree and calls into the session manager and API client; it
// never touches the session store.
package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ghaggin/citas/internal/apiclient"
	"github.com/ghaggin/citas/internal/auth"
	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/dashboard"
	"github.com/ghaggin/citas/internal/inflight"
	"github.com/ghaggin/citas/internal/middleware"
	"github.com/ghaggin/citas/internal/model"
	"github.com/ghaggin/citas/internal/session"
	"github.com/ghaggin/citas/internal/template"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	msgBusy       = "Ya hay una solicitud en curso, espera un momento"
	msgExpired    = "Tu sesión ha expirado, inicia sesión de nuevo"
	msgRegistered = "Usuario registrado exitosamente, ya puedes iniciar sesión"
)

type Server struct {
	log     *zap.Logger
	server  *http.Server
	session *session.Manager
	router  *dashboard.Router
	client  *apiclient.Client
	flash   *middleware.SessionManager
	guard   *inflight.Guard
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  *config.Config
	Session *session.Manager
	Router  *dashboard.Router
	Client  *apiclient.Client
	Flash   *middleware.SessionManager
}

func New(p Params) (*Server, error) {
	s := &Server{
		log:     p.Log,
		session: p.Session,
		router:  p.Router,
		client:  p.Client,
		flash:   p.Flash,
		guard:   inflight.New(),
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", p.Config.UI.Port),
		Handler: s.Handler(),
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	root := chi.NewRouter()
	root.Use(s.flash.Wrap)

	// No Auth
	root.Group(func(r chi.Router) {
		r.Get("/", s.home)
		r.Get("/login", s.loginForm)
		r.Post("/login", s.login)
		r.Get("/register", s.registerForm)
		r.Post("/register", s.register)
		r.Post("/logout", s.logout)
	})

	// Auth
	root.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.session, s.flash))
		r.Get("/screens/{name}", s.screen)
	})

	return root
}

// RegisterHooks should be invoked by fx
func RegisterHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.server.Shutdown,
	})
}

func (s *Server) Start(_ context.Context) error {
	s.log.Info("ui listening", zap.String("addr", s.server.Addr))
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.log.Error("error starting server", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	tree := s.router.Current()

	switch tree.Kind {
	case dashboard.KindLoading:
		s.render(w, r, http.StatusOK, "loading.html", &template.Data{PageTitle: "Cargando"})
	case dashboard.KindAuth:
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
	default:
		s.renderRoute(w, r, tree, tree.Root())
	}
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	if s.session.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.render(w, r, http.StatusOK, "login.html", &template.Data{
		PageTitle: "Iniciar sesión",
		Flash:     s.flash.PopFlash(r.Context()),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email, password := r.PostForm.Get("email"), r.PostForm.Get("password")

	res, err := inflight.TryDo(r.Context(), s.guard, "login", func(ctx context.Context) (session.LoginResult, error) {
		return s.session.Login(ctx, email, password), nil
	})
	if errors.Is(err, inflight.ErrInFlight) {
		res.Message = msgBusy
	}

	if !res.Success {
		s.flash.Flash(r.Context(), res.Message)
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, s.flash.PopReturnTo(r.Context(), "/"), http.StatusSeeOther)
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	role := model.Role(r.URL.Query().Get("rol"))
	if role != model.RoleMedico {
		role = model.RolePaciente
	}

	s.render(w, r, http.StatusOK, "register.html", &template.Data{
		PageTitle: "Registro",
		Flash:     s.flash.PopFlash(r.Context()),
		Role:      role,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := auth.RegisterRequest{
		Nombre:               r.PostForm.Get("nombre"),
		Apellido:             r.PostForm.Get("apellido"),
		Email:                r.PostForm.Get("email"),
		Password:             r.PostForm.Get("password"),
		PasswordConfirmation: r.PostForm.Get("password_confirmation"),
		Rol:                  model.Role(r.PostForm.Get("rol")),
	}

	res, err := inflight.TryDo(r.Context(), s.guard, "register", func(ctx context.Context) (session.LoginResult, error) {
		return s.session.Register(ctx, req), nil
	})
	if errors.Is(err, inflight.ErrInFlight) {
		res.Message = msgBusy
	}

	switch {
	case !res.Success:
		s.flash.Flash(r.Context(), res.Message)
		http.Redirect(w, r, "/register?rol="+url.QueryEscape(string(req.Rol)), http.StatusSeeOther)
	case res.Role == "":
		s.flash.Flash(r.Context(), msgRegistered)
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	// concurrent logouts share one backend call
	_, _, _ = inflight.Do(r.Context(), s.guard, "logout", func(ctx context.Context) (struct{}, error) {
		s.session.Logout(ctx)
		return struct{}{}, nil
	})
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (s *Server) screen(w http.ResponseWriter, r *http.Request) {
	tree := s.router.Current()

	route, ok := tree.Route(chi.URLParam(r, "name"))
	if !ok {
		s.render(w, r, http.StatusNotFound, "screen.html", &template.Data{
			PageTitle: "No encontrado",
			User:      s.session.User(),
			Tree:      tree,
			Message:   "Pantalla no disponible",
		})
		return
	}

	s.renderRoute(w, r, tree, route)
}

func (s *Server) renderRoute(w http.ResponseWriter, r *http.Request, tree dashboard.Tree, route dashboard.Route) {
	user := s.session.User()
	td := &template.Data{
		PageTitle: route.Title,
		Flash:     s.flash.PopFlash(r.Context()),
		User:      user,
		Tree:      tree,
		Route:     route,
	}

	if route.Endpoint != "" && user != nil {
		res := s.fetch(r.Context(), route, user)
		if !res.Success && !s.session.IsAuthenticated() {
			// the backend rejected the token and the session is gone
			s.flash.Flash(r.Context(), msgExpired)
			http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
			return
		}

		if res.Success {
			pretty, err := json.MarshalIndent(res.Data, "", "  ")
			if err != nil {
				s.log.Warn("error formatting screen data", zap.String("route", route.Name), zap.Error(err))
			}
			td.Items = string(pretty)
		} else {
			td.Message = res.Message
		}
	}

	s.render(w, r, http.StatusOK, "screen.html", td)
}

func (s *Server) fetch(ctx context.Context, route dashboard.Route, user *model.User) apiclient.Result[any] {
	if route.Screen == dashboard.ScreenPerfil {
		res := s.session.Profile(ctx)
		return apiclient.Result[any]{Success: res.Success, Data: res.Data, Message: res.Message}
	}

	var query url.Values
	if route.Scope != "" {
		query = url.Values{route.Scope: {strconv.FormatInt(user.ID, 10)}}
	}
	return apiclient.NewResource[any](s.client, route.Endpoint).Fetch(ctx, query)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, tmpl string, td *template.Data) {
	if err := template.RenderStatus(w, r, status, tmpl, td); err != nil {
		s.log.Error("error rendering template", zap.String("template", tmpl), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
