package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis stores the session under prefix+TokenKey and prefix+UserDataKey
// without expiry; the backend decides when a token dies.
func NewRedis(client *redis.Client, prefix string) Store {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && v == "") {
		return "", ErrNoSession
	}
	return v, err
}

func (s *redisStore) Token(ctx context.Context) (string, error) {
	return s.get(ctx, TokenKey)
}

func (s *redisStore) UserData(ctx context.Context) (string, error) {
	return s.get(ctx, UserDataKey)
}

func (s *redisStore) Save(ctx context.Context, token, userData string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.prefix+TokenKey, token, 0)
		pipe.Set(ctx, s.prefix+UserDataKey, userData, 0)
		return nil
	})
	return err
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.prefix+TokenKey, s.prefix+UserDataKey).Err()
}

func (s *redisStore) ClearToken(ctx context.Context, token string) error {
	key := s.prefix + TokenKey

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != "" && cur != token {
			return ErrTokenChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, s.prefix+UserDataKey)
			return nil
		})
		return err
	}

	// a concurrent Save makes the transaction fail; retry so the
	// comparison sees it
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}
