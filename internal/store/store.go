// Package store persists the session credentials across restarts.
//
// Two string entries are kept under fixed keys: the bearer token and the
// JSON-serialized user profile. Writes are reserved to the session manager
// and to the API client's unauthorized handler.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghaggin/citas/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	TokenKey    = "userToken"
	UserDataKey = "userData"
)

var (
	ErrNoSession    = errors.New("no session stored")
	ErrTokenChanged = errors.New("stored token has changed")
)

type Store interface {
	// Token returns ErrNoSession when no token is stored.
	Token(ctx context.Context) (string, error)
	// UserData returns the raw JSON user record, or ErrNoSession.
	UserData(ctx context.Context) (string, error)
	Save(ctx context.Context, token, userData string) error
	Clear(ctx context.Context) error
	// ClearToken clears the session only while token is the stored one.
	// It returns ErrTokenChanged, and leaves the store alone, when another
	// token has been saved since. An empty store is not an error.
	ClearToken(ctx context.Context, token string) error
}

type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

// New builds the driver named in config.
func New(p Params) (Store, error) {
	cfg := p.Config.Store
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "file":
		s := newFile(cfg.Path, p.Log)
		p.LC.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return s.flush()
			},
		})
		return s, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s := NewRedis(client, cfg.Redis.Prefix)
		p.LC.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(_ context.Context) error {
				return client.Close()
			},
		})
		return s, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
