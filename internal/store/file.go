package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	errStoreFileIsDir = errors.New("store file is dir")
)

// fileStore keeps both keys in one JSON document and rewrites it on every
// mutation so a crash never loses a login or resurrects a logout.
type fileStore struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex
	data map[string]string
}

func NewFile(path string, log *zap.Logger) Store {
	return newFile(path, log)
}

func newFile(path string, log *zap.Logger) *fileStore {
	s := &fileStore{
		path: path,
		log:  log,
		data: map[string]string{},
	}

	err := s.readfile()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// only log, the store starts empty
		s.log.Warn("failed reading session store file", zap.String("path", path), zap.Error(err))
		s.data = map[string]string{}
	}
	if s.data == nil {
		s.data = map[string]string{}
	}

	return s
}

func (s *fileStore) readfile() error {
	finfo, err := os.Stat(s.path)
	if err != nil {
		return err
	}

	if finfo.IsDir() {
		return errStoreFileIsDir
	}

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(&s.data)
}

// writefile must be called with mu held.
func (s *fileStore) writefile() error {
	return s.write(s.data)
}

// write persists data without touching s.data.
func (s *fileStore) write(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

func (s *fileStore) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writefile()
}

func (s *fileStore) get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok || v == "" {
		return "", ErrNoSession
	}
	return v, nil
}

func (s *fileStore) Token(_ context.Context) (string, error) {
	return s.get(TokenKey)
}

func (s *fileStore) UserData(_ context.Context) (string, error) {
	return s.get(UserDataKey)
}

func (s *fileStore) Save(_ context.Context, token, userData string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyData()
	next[TokenKey] = token
	next[UserDataKey] = userData
	return s.commit(next)
}

func (s *fileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clear()
}

func (s *fileStore) ClearToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.data[TokenKey]; cur != "" && cur != token {
		return ErrTokenChanged
	}
	return s.clear()
}

// clear must be called with mu held.
func (s *fileStore) clear() error {
	next := s.copyData()
	delete(next, TokenKey)
	delete(next, UserDataKey)
	return s.commit(next)
}

// commit writes next to disk and only then makes it the in-memory state,
// so a failed write leaves both at the previous session.
func (s *fileStore) commit(next map[string]string) error {
	if err := s.write(next); err != nil {
		s.log.Error("error writing session store file", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.data = next
	return nil
}

func (s *fileStore) copyData() map[string]string {
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
