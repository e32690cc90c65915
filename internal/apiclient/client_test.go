package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ghaggin/citas/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, store.Store) {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	st := store.NewMemory()
	return NewClient(ts.URL+"/api", time.Second, st, zaptest.NewLogger(t)), st
}

func TestDoAttachesBearerToken(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	var gotAuth, gotRequestID, gotPath string
	c, st := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(HeaderAuthorization)
		gotRequestID = r.Header.Get(HeaderRequestID)
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	})

	require.NoError(c.Do(ctx, http.MethodGet, "/me", nil, nil))
	assert.Empty(gotAuth)
	assert.NotEmpty(gotRequestID)
	assert.Equal("/api/me", gotPath)

	require.NoError(st.Save(ctx, "tok-1", `{}`))
	require.NoError(c.Do(ctx, http.MethodGet, "me", nil, nil))
	assert.Equal("Bearer tok-1", gotAuth)

	require.NoError(c.Do(ctx, http.MethodPost, "login", nil, nil, Public()))
	assert.Empty(gotAuth)
}

func TestDoUnauthorizedClearsSession(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	c, st := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Unauthenticated."}`))
	})
	require.NoError(st.Save(ctx, "stale", `{"id":1}`))

	notified := 0
	c.OnUnauthorized(func(_ context.Context, token string) {
		// the store is already clear when listeners run
		_, err := st.Token(ctx)
		assert.ErrorIs(err, store.ErrNoSession)
		assert.Equal("stale", token)
		notified++
	})

	err := c.Do(ctx, http.MethodGet, "citas", nil, nil)
	require.Error(err)
	assert.True(IsUnauthorized(err))
	assert.Equal("Unauthenticated.", MessageOf(err, "fallback"))
	assert.Equal(1, notified)

	_, err = st.UserData(ctx)
	assert.ErrorIs(err, store.ErrNoSession)
}

func TestDoUnauthorizedPublicKeepsSession(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	c, st := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(st.Save(ctx, "tok", `{}`))

	err := c.Do(ctx, http.MethodPost, "login", map[string]string{"email": "x"}, nil, Public())
	require.True(IsUnauthorized(err))

	token, err := st.Token(ctx)
	require.NoError(err)
	require.Equal("tok", token)
}

func TestDoUnauthorizedSupersededToken(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	var st store.Store
	c, st := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// a new login lands while the old request is in flight
		_ = st.Save(ctx, "fresh", `{}`)
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(st.Save(ctx, "old", `{}`))

	notified := false
	c.OnUnauthorized(func(context.Context, string) {
		notified = true
	})

	err := c.Do(ctx, http.MethodGet, "citas", nil, nil)
	require.True(IsUnauthorized(err))

	token, err := st.Token(ctx)
	require.NoError(err)
	require.Equal("fresh", token)
	require.False(notified)
}

func TestDoWithTokenOverridesStoredToken(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	var gotAuth string
	c, st := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(HeaderAuthorization)
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(st.Save(ctx, "stored", `{}`))

	notified := false
	c.OnUnauthorized(func(context.Context, string) { notified = true })

	err := c.Do(ctx, http.MethodPost, "logout", nil, nil, WithToken("other"))
	require.True(IsUnauthorized(err))
	require.Equal("Bearer other", gotAuth)

	token, err := st.Token(ctx)
	require.NoError(err)
	require.Equal("stored", token)
	require.False(notified)
}

func TestDoServerError(t *testing.T) {
	assert := assert.New(t)

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"message":"El email ya está registrado"}`))
	})

	err := c.Do(context.Background(), http.MethodPost, "register", nil, nil)
	assert.False(IsUnauthorized(err))
	assert.False(IsNetwork(err))
	assert.Equal("El email ya está registrado", MessageOf(err, "fallback"))

	res := Fail[struct{}](err, "fallback")
	assert.False(res.Success)
	assert.Equal("El email ya está registrado", res.Message)
}

func TestDoNonJSONErrorUsesFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>oops</html>`))
	})

	err := c.Do(context.Background(), http.MethodGet, "citas", nil, nil)
	assert.Equal(t, "fallback", MessageOf(err, "fallback"))
}

func TestDoNetworkError(t *testing.T) {
	assert := assert.New(t)

	ts := httptest.NewServer(http.NotFoundHandler())
	baseURL := ts.URL
	ts.Close()

	c := NewClient(baseURL, time.Second, store.NewMemory(), zaptest.NewLogger(t))
	err := c.Do(context.Background(), http.MethodGet, "citas", nil, nil)
	assert.True(IsNetwork(err))
	assert.Equal(msgUnreachable, MessageOf(err, ""))
}

func TestDoTimeout(t *testing.T) {
	assert := assert.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL, 50*time.Millisecond, store.NewMemory(), zaptest.NewLogger(t))
	err := c.Do(context.Background(), http.MethodGet, "citas", nil, nil)
	assert.True(IsNetwork(err))
	assert.Equal(msgTimeout, MessageOf(err, ""))
}

func TestResourceList(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	var gotQuery url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"success":true,"data":[{"id":1,"estado":"pendiente"},{"id":2,"estado":"confirmada"}]}`))
	})

	type cita struct {
		ID     int    `json:"id"`
		Estado string `json:"estado"`
	}

	res := NewResource[cita](c, ResourceCitas).List(context.Background(), url.Values{"medico_id": {"4"}})
	require.True(res.Success)
	require.Len(res.Data, 2)
	assert.Equal("confirmada", res.Data[1].Estado)
	assert.Equal("4", gotQuery.Get("medico_id"))
}

func TestResourceGetBareBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/eps/9", r.URL.Path)
		w.Write([]byte(`{"id":9,"nombre":"Sura"}`))
	})

	res := NewResource[map[string]any](c, ResourceEps).Get(context.Background(), "9")
	require.True(t, res.Success)
	assert.Equal(t, "Sura", res.Data["nombre"])
}

func TestResourceDeleteFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res := NewResource[map[string]any](c, ResourceConsultorios).Delete(context.Background(), "3")
	assert.False(t, res.Success)
	assert.Equal(t, "Error al eliminar consultorios", res.Message)
}

func TestResourceFetchObject(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/estadisticas", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"citas":3,"medicos":1}}`))
	})

	res := NewResource[map[string]int](c, ResourceEstadisticas).Fetch(context.Background(), nil)
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Data["citas"])
}
