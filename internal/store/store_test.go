package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testStore(t *testing.T, s Store) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	_, err := s.Token(ctx)
	assert.ErrorIs(err, ErrNoSession)
	_, err = s.UserData(ctx)
	assert.ErrorIs(err, ErrNoSession)

	require.NoError(s.Save(ctx, "tok", `{"id":1}`))

	token, err := s.Token(ctx)
	require.NoError(err)
	assert.Equal("tok", token)

	userData, err := s.UserData(ctx)
	require.NoError(err)
	assert.Equal(`{"id":1}`, userData)

	require.NoError(s.Clear(ctx))

	_, err = s.Token(ctx)
	assert.ErrorIs(err, ErrNoSession)
	_, err = s.UserData(ctx)
	assert.ErrorIs(err, ErrNoSession)

	// clearing an empty store is fine
	require.NoError(s.Clear(ctx))
	require.NoError(s.ClearToken(ctx, "tok"))

	// a newer token is left alone
	require.NoError(s.Save(ctx, "new", `{"id":2}`))
	assert.ErrorIs(s.ClearToken(ctx, "tok"), ErrTokenChanged)
	token, err = s.Token(ctx)
	require.NoError(err)
	assert.Equal("new", token)

	require.NoError(s.ClearToken(ctx, "new"))
	_, err = s.Token(ctx)
	assert.ErrorIs(err, ErrNoSession)
	_, err = s.UserData(ctx)
	assert.ErrorIs(err, ErrNoSession)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	testStore(t, NewFile(filepath.Join(t.TempDir(), "session.json"), zap.NewNop()))
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s := NewFile(path, zap.NewNop())
	require.NoError(s.Save(ctx, "tok", `{"id":7}`))

	reopened := NewFile(path, zap.NewNop())
	token, err := reopened.Token(ctx)
	require.NoError(err)
	require.Equal("tok", token)

	require.NoError(reopened.Clear(ctx))

	again := NewFile(path, zap.NewNop())
	_, err = again.Token(ctx)
	require.ErrorIs(err, ErrNoSession)
}

func TestFileStoreCorruptFile(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewFile(path, zap.NewNop())
	_, err := s.Token(context.Background())
	require.ErrorIs(err, ErrNoSession)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	_, client := newTestRedis(t)
	testStore(t, NewRedis(client, "citas:"))
}

func TestRedisStoreKeys(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	mr, client := newTestRedis(t)
	s := NewRedis(client, "citas:")

	require.NoError(s.Save(ctx, "tok", `{"id":3}`))
	mr.CheckGet(t, "citas:userToken", "tok")
	mr.CheckGet(t, "citas:userData", `{"id":3}`)
	assert.Zero(mr.TTL("citas:userToken"))

	// an empty value counts as no session
	require.NoError(mr.Set("citas:userToken", ""))
	_, err := s.Token(ctx)
	assert.ErrorIs(err, ErrNoSession)

	require.NoError(s.Clear(ctx))
	assert.False(mr.Exists("citas:userToken"))
	assert.False(mr.Exists("citas:userData"))
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedis(client, "citas:")

	_, err := s.Token(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestFileStoreFailedWriteKeepsSession(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "state")
	require.NoError(os.Mkdir(dir, 0o700))
	s := NewFile(filepath.Join(dir, "session.json"), zap.NewNop())
	require.NoError(s.Save(ctx, "tok", `{"id":1}`))

	// the directory turns into a file, so no temp file can be created
	require.NoError(os.RemoveAll(dir))
	require.NoError(os.WriteFile(dir, nil, 0o600))

	assert.Error(s.Clear(ctx))
	assert.Error(s.ClearToken(ctx, "tok"))
	assert.Error(s.Save(ctx, "other", `{"id":2}`))

	token, err := s.Token(ctx)
	require.NoError(err)
	assert.Equal("tok", token)
	userData, err := s.UserData(ctx)
	require.NoError(err)
	assert.Equal(`{"id":1}`, userData)
}
