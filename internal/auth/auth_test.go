package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghaggin/citas/internal/apiclient"
	"github.com/ghaggin/citas/internal/model"
	"github.com/ghaggin/citas/internal/store"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T, h http.HandlerFunc) (*Service, store.Store) {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	st := store.NewMemory()
	log := zaptest.NewLogger(t)
	client := apiclient.NewClient(ts.URL, time.Second, st, log)
	return New(Params{Client: client, Log: log}), st
}

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	m := map[string]string{}
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestLoginEnvelope(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal("medico", body["tipo"])
		assert.Empty(r.Header.Get(apiclient.HeaderAuthorization))
		w.Write([]byte(`{"success":true,"data":{"token":"t1","user":{"id":3,"nombre":"Carlos","email":"doc@x.com"}}}`))
	})

	g, err := svc.Login(context.Background(), Credentials{Email: "doc@x.com", Password: "pw"}, model.RoleMedico)
	require.NoError(err)
	assert.Equal("t1", g.Token)
	assert.Equal(int64(3), g.User.ID)
	// role falls back to the attempted one
	assert.Equal(model.RoleMedico, g.User.Tipo)
}

func TestLoginFlatBodyReportedRole(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"token":"t2","tipo":"admin","user":{"id":1,"email":"a@x.com"}}`))
	})

	g, err := svc.Login(context.Background(), Credentials{Email: "a@x.com", Password: "pw"}, model.RolePaciente)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, g.User.Tipo)
}

func TestLoginRejections(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
	}{
		"unauthorized":    {http.StatusUnauthorized, `{"success":false,"message":"Credenciales inválidas"}`},
		"success false":   {http.StatusOK, `{"success":false}`},
		"missing token":   {http.StatusOK, `{"success":true,"user":{"id":1}}`},
		"unknown role":    {http.StatusOK, `{"success":true,"token":"t","tipo":"root","user":{"id":1}}`},
		"validation fail": {http.StatusUnprocessableEntity, `{"message":"The tipo field is invalid."}`},
	} {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := svc.Login(context.Background(), Credentials{Email: "bad@x.com", Password: "wrong"}, model.RoleAdmin)
			require.Error(t, err)
			assert.False(t, isFatal(err))
		})
	}
}

func TestLoginInvalidInputSkipsNetwork(t *testing.T) {
	called := false
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := svc.Login(context.Background(), Credentials{Email: "not-an-email", Password: ""}, model.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, called)
}

func TestRegister(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/register", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal("Ana", body["name"])
		assert.Equal("secret1", body["password_confirmation"])
		assert.Equal("paciente", body["role"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"t3","user":{"id":5,"nombre":"Ana","email":"ana@x.com"}}`))
	})

	g, err := svc.Register(context.Background(), RegisterRequest{
		Nombre:   "Ana",
		Email:    "ana@x.com",
		Password: "secret1",
	})
	require.NoError(err)
	require.NotNil(g)
	assert.Equal(model.RolePaciente, g.User.Tipo)
}

func TestRegisterWithoutToken(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"message":"Usuario registrado"}`))
	})

	g, err := svc.Register(context.Background(), RegisterRequest{
		Nombre:   "Ana",
		Email:    "ana@x.com",
		Password: "secret1",
		Rol:      model.RoleMedico,
	})
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestRegisterMismatchedConfirmation(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be called")
	})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Nombre:               "Ana",
		Email:                "ana@x.com",
		Password:             "secret1",
		PasswordConfirmation: "secret2",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMe(t *testing.T) {
	svc, st := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get(apiclient.HeaderAuthorization))
		w.Write([]byte(`{"success":true,"data":{"id":2,"nombre":"Luz","tipo":"paciente"}}`))
	})
	require.NoError(t, st.Save(context.Background(), "tok", `{}`))

	res := svc.Me(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, "Luz", res.Data.Nombre)
}

func TestRevokeSendsGivenToken(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	var path, gotAuth string
	svc, st := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		path, gotAuth = r.URL.Path, r.Header.Get(apiclient.HeaderAuthorization)
		w.Write([]byte(`{"success":true}`))
	})
	require.NoError(st.Save(ctx, "mine", `{}`))

	require.NoError(svc.Revoke(ctx, "discarded"))
	require.Equal("/logout", path)
	require.Equal("Bearer discarded", gotAuth)

	token, err := st.Token(ctx)
	require.NoError(err)
	require.Equal("mine", token)
}
