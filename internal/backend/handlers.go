package backend

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ghaggin/citas/internal/model"
	"github.com/ghaggin/citas/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

type handlers struct {
	c   *Controller
	log *zap.Logger
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Message: msg})
}

func (h *handlers) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			fail(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}

		u, err := h.c.Authenticate(r.Context(), token)
		if err != nil {
			fail(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Tipo     model.Role `json:"tipo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	token, u, err := h.c.ValidateLogin(r.Context(), req.Email, req.Password, req.Tipo)
	if err != nil {
		h.log.Debug("login rejected", zap.String("email", req.Email), zap.String("tipo", req.Tipo.String()))
		fail(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"token": token,
			"user":  u,
			"tipo":  u.Tipo,
		},
	})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                 string     `json:"name"`
		Apellido             string     `json:"apellido"`
		Email                string     `json:"email"`
		Password             string     `json:"password"`
		PasswordConfirmation string     `json:"password_confirmation"`
		Role                 model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	if req.Email == "" || req.Password == "" || req.Password != req.PasswordConfirmation {
		fail(w, http.StatusUnprocessableEntity, "Datos de registro inválidos")
		return
	}
	if req.Role == "" {
		req.Role = model.RolePaciente
	}
	// admins are created by admins
	if req.Role != model.RoleMedico && req.Role != model.RolePaciente {
		fail(w, http.StatusUnprocessableEntity, "Rol inválido")
		return
	}

	token, u, err := h.c.CreateAccount(r.Context(), model.User{
		Nombre:   req.Name,
		Apellido: req.Apellido,
		Email:    req.Email,
		Tipo:     req.Role,
	}, req.Password)
	if errors.Is(err, repository.ErrExists) {
		fail(w, http.StatusUnprocessableEntity, "El email ya está registrado")
		return
	}
	if err != nil {
		h.log.Error("error creating account", zap.Error(err))
		fail(w, http.StatusInternalServerError, "Error al registrar usuario")
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Usuario registrado exitosamente",
		Data: map[string]any{
			"token": token,
			"user":  u,
		},
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey).(string)
	h.c.Revoke(token)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Sesión cerrada"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	u, _ := r.Context().Value(userKey).(*model.User)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: u})
}

func (h *handlers) estadisticas(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	for _, res := range Resources {
		counts[res] = len(h.c.List(res, nil))
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: counts})
}

// scoped lists res filtered by the caller's own id under param. Only admins
// may ask for someone else's records.
func (h *handlers) scoped(res, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _ := r.Context().Value(userKey).(*model.User)
		id := r.URL.Query().Get(param)
		if id == "" {
			id = strconv.FormatInt(u.ID, 10)
		}
		if id != strconv.FormatInt(u.ID, 10) && u.Tipo != model.RoleAdmin {
			fail(w, http.StatusForbidden, "No autorizado")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: h.c.List(res, map[string]string{param: id})})
	}
}

func (h *handlers) list(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := map[string]string{}
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				filter[k] = v[0]
			}
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: h.c.List(res, filter)})
	}
}

func (h *handlers) get(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		rec, err := h.c.Get(res, id)
		if err != nil {
			fail(w, http.StatusNotFound, "No encontrado")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: rec})
	}
}

func (h *handlers) create(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			fail(w, http.StatusBadRequest, "Solicitud inválida")
			return
		}
		writeJSON(w, http.StatusCreated, envelope{Success: true, Data: h.c.Create(res, rec)})
	}
}

func (h *handlers) update(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			fail(w, http.StatusBadRequest, "Solicitud inválida")
			return
		}
		updated, err := h.c.Update(res, id, rec)
		if err != nil {
			fail(w, http.StatusNotFound, "No encontrado")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: updated})
	}
}

func (h *handlers) delete(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := h.c.Delete(res, id); err != nil {
			fail(w, http.StatusNotFound, "No encontrado")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true})
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		fail(w, http.StatusBadRequest, "ID inválido")
		return 0, false
	}
	return id, true
}
