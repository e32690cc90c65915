// Package session owns "who is logged in and as what". It is the single
// writer of the session store apart from the API client's 401 handler.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ghaggin/citas/internal/apiclient"
	"github.com/ghaggin/citas/internal/auth"
	"github.com/ghaggin/citas/internal/model"
	"github.com/ghaggin/citas/internal/store"
	"github.com/goccy/go-json"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	logoutTimeout = 5 * time.Second

	msgSaveFailed = "No se pudo guardar la sesión"
)

// AuthService is the slice of auth.Service the manager needs.
type AuthService interface {
	auth.Authenticator
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Grant, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) apiclient.Result[model.User]
}

// LoginResult is what login and register report to screens. Role is set
// only when the call left the session authenticated.
type LoginResult struct {
	Success bool       `json:"success"`
	Role    model.Role `json:"role,omitempty"`
	Message string     `json:"message,omitempty"`
}

type Manager struct {
	store    store.Store
	auth     AuthService
	strategy auth.Strategy
	log      *zap.Logger

	mu        sync.RWMutex
	state     model.Session
	listeners []func(model.Session)
}

type Params struct {
	fx.In

	Store    store.Store
	Client   *apiclient.Client
	Auth     AuthService
	Strategy auth.Strategy
	Log      *zap.Logger
}

// NewManager builds a manager and subscribes it to the client's 401s.
func NewManager(p Params) *Manager {
	m := New(p.Store, p.Auth, p.Strategy, p.Log)
	p.Client.OnUnauthorized(m.HandleUnauthorized)
	return m
}

func New(st store.Store, svc AuthService, strategy auth.Strategy, log *zap.Logger) *Manager {
	if strategy == nil {
		strategy = auth.SequentialProbe{Roles: model.Roles}
	}
	return &Manager{
		store:    st,
		auth:     svc,
		strategy: strategy,
		log:      log,
		state:    model.Session{Status: model.StatusUnknown},
	}
}

// RegisterHooks should be invoked by fx
func RegisterHooks(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			m.Bootstrap(ctx)
			return nil
		},
	})
}

// Bootstrap restores the session from the store without touching the
// network. Any read or parse problem leaves the session unauthenticated.
func (m *Manager) Bootstrap(ctx context.Context) model.Session {
	next := m.restore(ctx)

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	m.log.Info("session bootstrapped", zap.Stringer("status", next.Status), zap.String("role", next.Role().String()))

	m.notify(next)
	return copySession(next)
}

func (m *Manager) restore(ctx context.Context) model.Session {
	none := model.Session{Status: model.StatusUnauthenticated}

	token, err := m.store.Token(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoSession) {
			m.log.Warn("error reading stored token", zap.Error(err))
		}
		return none
	}

	userData, err := m.store.UserData(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoSession) {
			m.log.Warn("error reading stored user", zap.Error(err))
		}
		return none
	}

	var u model.User
	if err := json.Unmarshal([]byte(userData), &u); err != nil {
		m.log.Warn("stored user is not valid json", zap.Error(err))
		return none
	}

	if !u.Tipo.Valid() {
		// never guess a role; the user has to sign in again
		m.log.Warn("stored user has unknown role", zap.String("role", u.Tipo.String()))
		return none
	}

	return model.Session{Status: model.StatusAuthenticated, Token: token, User: &u}
}

// Login authenticates with the configured strategy. On failure neither the
// store nor the in-memory state changes.
func (m *Manager) Login(ctx context.Context, email, password string) LoginResult {
	cred := auth.Credentials{Email: email, Password: password}

	g, err := m.strategy.Authenticate(ctx, m.auth, cred)
	if err != nil {
		m.log.Info("login failed", zap.String("email", email), zap.Error(err))
		return LoginResult{Message: failureMessage(err)}
	}

	if err := m.commit(ctx, g); err != nil {
		return LoginResult{Message: msgSaveFailed}
	}

	m.log.Info("login succeeded", zap.String("email", email), zap.String("role", g.User.Tipo.String()))
	return LoginResult{Success: true, Role: g.User.Tipo}
}

// Register creates an account and, when the backend hands back a token,
// signs the new user in.
func (m *Manager) Register(ctx context.Context, req auth.RegisterRequest) LoginResult {
	g, err := m.auth.Register(ctx, req)
	if err != nil {
		m.log.Info("register failed", zap.String("email", req.Email), zap.Error(err))
		if errors.Is(err, auth.ErrInvalidInput) {
			return LoginResult{Message: auth.MsgInvalidInput}
		}
		return LoginResult{Message: apiclient.MessageOf(err, "Error al registrar usuario")}
	}

	if g == nil {
		return LoginResult{Success: true, Message: "Usuario registrado exitosamente"}
	}

	if err := m.commit(ctx, g); err != nil {
		return LoginResult{Message: msgSaveFailed}
	}
	return LoginResult{Success: true, Role: g.User.Tipo, Message: "Usuario registrado exitosamente"}
}

func (m *Manager) commit(ctx context.Context, g *auth.Grant) error {
	userData, err := json.Marshal(g.User)
	if err != nil {
		m.log.Error("error encoding user", zap.Error(err))
		return err
	}

	u := g.User
	next := model.Session{Status: model.StatusAuthenticated, Token: g.Token, User: &u}

	m.mu.Lock()
	if err := m.store.Save(ctx, g.Token, string(userData)); err != nil {
		m.mu.Unlock()
		m.log.Error("error saving session", zap.Error(err))
		return err
	}
	m.state = next
	m.mu.Unlock()

	m.notify(next)
	return nil
}

// Logout notifies the backend on a best-effort basis, then always clears
// the store and the in-memory state.
func (m *Manager) Logout(ctx context.Context) {
	if m.IsAuthenticated() {
		lctx, cancel := context.WithTimeout(ctx, logoutTimeout)
		if err := m.auth.Logout(lctx); err != nil {
			m.log.Info("backend logout failed, clearing local session anyway", zap.Error(err))
		}
		cancel()
	}

	m.reset(ctx)
	m.log.Info("logged out")
}

// HandleUnauthorized is the forced logout run after the API client has
// cleared the store on a 401 for token. A session that has moved on to
// another token since the request was sent is left alone.
func (m *Manager) HandleUnauthorized(_ context.Context, token string) {
	next := model.Session{Status: model.StatusUnauthenticated}

	m.mu.Lock()
	if m.state.Token != token {
		m.mu.Unlock()
		m.log.Info("ignoring 401 for a previous session")
		return
	}
	m.state = next
	m.mu.Unlock()

	m.log.Info("session expired by backend")
	m.notify(next)
}

func (m *Manager) reset(ctx context.Context) {
	next := model.Session{Status: model.StatusUnauthenticated}

	m.mu.Lock()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error("error clearing session store", zap.Error(err))
	}
	m.state = next
	m.mu.Unlock()

	m.notify(next)
}

// Subscribe registers fn to run after every state transition.
func (m *Manager) Subscribe(fn func(model.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(s model.Session) {
	m.mu.RLock()
	listeners := append([]func(model.Session){}, m.listeners...)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(copySession(s))
	}
}

func (m *Manager) Session() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySession(m.state)
}

func (m *Manager) Status() model.Status {
	return m.Session().Status
}

func (m *Manager) IsAuthenticated() bool {
	return m.Session().IsAuthenticated()
}

func (m *Manager) Role() model.Role {
	return m.Session().Role()
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *model.User {
	return m.Session().User
}

// Profile fetches the signed-in user's profile from the backend. The
// session itself is not changed; a rejected token ends it through the
// client's 401 handling.
func (m *Manager) Profile(ctx context.Context) apiclient.Result[model.User] {
	if !m.IsAuthenticated() {
		return apiclient.Result[model.User]{Message: auth.MsgNotAuthenticated}
	}
	return m.auth.Me(ctx)
}

func copySession(s model.Session) model.Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return auth.MsgInvalidInput
	case apiclient.IsNetwork(err):
		return apiclient.MessageOf(err, auth.MsgInvalidCredentials)
	}
	return auth.MsgInvalidCredentials
}
