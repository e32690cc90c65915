package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// Backend resources browsed by the screens.
const (
	ResourceCitas           = "citas"
	ResourceMedicos         = "medicos"
	ResourcePacientes       = "pacientes"
	ResourceEspecialidades  = "especialidades"
	ResourceConsultorios    = "consultorios"
	ResourceEps             = "eps"
	ResourceAdministradores = "administradores"
	ResourceUsers           = "users"
	ResourceEstadisticas    = "estadisticas"
)

// Resource is a CRUD client over one REST collection.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: strings.Trim(path, "/")}
}

func (r *Resource[T]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *Resource[T]) List(ctx context.Context, query url.Values) Result[[]T] {
	var items []T
	if err := r.do(ctx, http.MethodGet, r.path, nil, &items, WithQuery(query)); err != nil {
		return Fail[[]T](err, fmt.Sprintf("Error al obtener %s", r.path))
	}
	return OK(items)
}

// Fetch reads the resource path as a single document, for endpoints that
// answer with an object rather than a list.
func (r *Resource[T]) Fetch(ctx context.Context, query url.Values) Result[T] {
	var item T
	if err := r.do(ctx, http.MethodGet, r.path, nil, &item, WithQuery(query)); err != nil {
		return Fail[T](err, fmt.Sprintf("Error al obtener %s", r.path))
	}
	return OK(item)
}

func (r *Resource[T]) Get(ctx context.Context, id string) Result[T] {
	var item T
	if err := r.do(ctx, http.MethodGet, r.item(id), nil, &item); err != nil {
		return Fail[T](err, fmt.Sprintf("Error al obtener %s por ID", r.path))
	}
	return OK(item)
}

func (r *Resource[T]) Create(ctx context.Context, data T) Result[T] {
	var item T
	if err := r.do(ctx, http.MethodPost, r.path, data, &item); err != nil {
		return Fail[T](err, fmt.Sprintf("Error al crear %s", r.path))
	}
	return OK(item)
}

func (r *Resource[T]) Update(ctx context.Context, id string, data T) Result[T] {
	var item T
	if err := r.do(ctx, http.MethodPut, r.item(id), data, &item); err != nil {
		return Fail[T](err, fmt.Sprintf("Error al actualizar %s", r.path))
	}
	return OK(item)
}

func (r *Resource[T]) Delete(ctx context.Context, id string) Result[struct{}] {
	if err := r.do(ctx, http.MethodDelete, r.item(id), nil, nil); err != nil {
		return Fail[struct{}](err, fmt.Sprintf("Error al eliminar %s", r.path))
	}
	return OK(struct{}{})
}

func (r *Resource[T]) do(ctx context.Context, method, path string, body, out any, opts ...Option) error {
	var raw json.RawMessage
	if err := r.client.Do(ctx, method, path, body, &raw, opts...); err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(Unwrap(raw), out); err != nil {
		return &Error{StatusCode: http.StatusOK, Message: msgServer, Err: err}
	}
	return nil
}

// Unwrap returns the "data" member of a {"success":..,"data":..} envelope,
// or raw itself when there is no such member.
func Unwrap(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return raw
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return raw
	}
	return env.Data
}
