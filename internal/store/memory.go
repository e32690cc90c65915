package store

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() Store {
	return &memoryStore{data: map[string]string{}}
}

func (s *memoryStore) get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok || v == "" {
		return "", ErrNoSession
	}
	return v, nil
}

func (s *memoryStore) Token(_ context.Context) (string, error) {
	return s.get(TokenKey)
}

func (s *memoryStore) UserData(_ context.Context) (string, error) {
	return s.get(UserDataKey)
}

func (s *memoryStore) Save(_ context.Context, token, userData string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[TokenKey] = token
	s.data[UserDataKey] = userData
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, TokenKey)
	delete(s.data, UserDataKey)
	return nil
}

func (s *memoryStore) ClearToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.data[TokenKey]; cur != "" && cur != token {
		return ErrTokenChanged
	}
	delete(s.data, TokenKey)
	delete(s.data, UserDataKey)
	return nil
}
