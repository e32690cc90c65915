// Package auth talks to the backend's credential endpoints. It never touches
// the session store; persisting a Grant is the session manager's job.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ghaggin/citas/internal/apiclient"
	"github.com/ghaggin/citas/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	MsgInvalidCredentials = "Credenciales inválidas"
	MsgInvalidInput       = "Datos incompletos o inválidos"
	MsgNotAuthenticated   = "No hay una sesión activa"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("backend reported an unknown role")
	ErrInvalidInput       = errors.New("invalid input")
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Nombre               string `validate:"required"`
	Apellido             string
	Email                string     `validate:"required,email"`
	Password             string     `validate:"required,min=6"`
	PasswordConfirmation string     `validate:"omitempty,eqfield=Password"`
	Rol                  model.Role `validate:"omitempty,oneof=admin medico paciente"`
}

// Grant is a successful authentication: the bearer token and the user with
// its resolved role in Tipo.
type Grant struct {
	Token string
	User  model.User
}

// Authenticator performs one login attempt. An empty role sends no tipo.
type Authenticator interface {
	Login(ctx context.Context, cred Credentials, role model.Role) (*Grant, error)
}

// Revoker is implemented by authenticators that can revoke a token they
// handed out. ParallelProbe uses it to drop the grants it does not pick.
type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

type Service struct {
	client   *apiclient.Client
	log      *zap.Logger
	validate *validator.Validate
}

type Params struct {
	fx.In

	Client *apiclient.Client
	Log    *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		client:   p.Client,
		log:      p.Log,
		validate: validator.New(),
	}
}

func (s *Service) Validate(cred Credentials) error {
	if err := s.validate.Struct(cred); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

type grantBody struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
	Tipo  model.Role  `json:"tipo"`
}

// loginResponse accepts both {"success":true,"data":{...}} and the flat
// {"success":true,"token":..,"user":..} shape.
type loginResponse struct {
	Success *bool       `json:"success"`
	Message string      `json:"message"`
	Data    *grantBody  `json:"data"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	Tipo    model.Role  `json:"tipo"`
}

func (r *loginResponse) grant(fallback model.Role) (*Grant, error) {
	if r.Success != nil && !*r.Success {
		return nil, ErrInvalidCredentials
	}

	token, user, tipo := r.Token, r.User, r.Tipo
	if r.Data != nil {
		if r.Data.Token != "" {
			token = r.Data.Token
		}
		if r.Data.User != nil {
			user = r.Data.User
		}
		if r.Data.Tipo != "" {
			tipo = r.Data.Tipo
		}
	}
	if token == "" || user == nil {
		return nil, ErrInvalidCredentials
	}

	if tipo == "" {
		tipo = user.Tipo
	}
	if tipo == "" {
		tipo = fallback
	}
	if !tipo.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, tipo)
	}

	u := *user
	u.Tipo = tipo
	return &Grant{Token: token, User: u}, nil
}

// Login posts the credentials labeled with role. A rejection from the backend
// is ErrInvalidCredentials; transport failures are returned as *apiclient.Error.
func (s *Service) Login(ctx context.Context, cred Credentials, role model.Role) (*Grant, error) {
	if err := s.Validate(cred); err != nil {
		return nil, err
	}

	body := map[string]string{
		"email":    cred.Email,
		"password": cred.Password,
	}
	if role != "" {
		body["tipo"] = role.String()
	}

	var resp loginResponse
	err := s.client.Do(ctx, http.MethodPost, "login", body, &resp, apiclient.Public())
	if err != nil {
		if apiclient.IsNetwork(err) {
			return nil, err
		}
		s.log.Debug("login rejected", zap.String("role", role.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiclient.MessageOf(err, MsgInvalidCredentials))
	}

	return resp.grant(role)
}

// Register creates an account. A backend that answers with a token logs the
// user in right away; otherwise the returned Grant is nil.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Grant, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	rol := req.Rol
	if rol == "" {
		rol = model.RolePaciente
	}
	confirmation := req.PasswordConfirmation
	if confirmation == "" {
		confirmation = req.Password
	}

	body := map[string]string{
		"name":                  req.Nombre,
		"apellido":              req.Apellido,
		"email":                 req.Email,
		"password":              req.Password,
		"password_confirmation": confirmation,
		"role":                  rol.String(),
	}

	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodPost, "register", body, &raw, apiclient.Public()); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &apiclient.Error{StatusCode: http.StatusOK, Message: "Error en la respuesta del servidor", Err: err}
	}

	if resp.Success != nil && !*resp.Success {
		return nil, &apiclient.Error{StatusCode: http.StatusOK, Message: firstNonEmpty(resp.Message, "Error al registrar usuario")}
	}

	g, err := resp.grant(rol)
	if err != nil {
		// registered but not logged in
		return nil, nil
	}
	return g, nil
}

// Revoke asks the backend to revoke token, which need not be the stored one.
func (s *Service) Revoke(ctx context.Context, token string) error {
	err := s.client.Do(ctx, http.MethodPost, "logout", nil, nil, apiclient.WithToken(token))
	if err != nil {
		s.log.Warn("error revoking token", zap.Error(err))
	}
	return err
}

// Logout tells the backend to revoke the current token.
func (s *Service) Logout(ctx context.Context) error {
	return s.client.Do(ctx, http.MethodPost, "logout", nil, nil)
}

// Me fetches the profile behind the current token.
func (s *Service) Me(ctx context.Context) apiclient.Result[model.User] {
	var raw json.RawMessage
	if err := s.client.Do(ctx, http.MethodGet, "me", nil, &raw); err != nil {
		return apiclient.Fail[model.User](err, "Error al obtener el perfil")
	}

	var u model.User
	if err := json.Unmarshal(apiclient.Unwrap(raw), &u); err != nil {
		return apiclient.Result[model.User]{Message: "Error en la respuesta del servidor"}
	}
	return apiclient.OK(u)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
