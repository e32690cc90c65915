package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/model"
	"github.com/goccy/go-json"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	errTableFileIsDir = errors.New("table file is dir")
)

type Data struct {
	Accounts []model.Account `json:"accounts"`
}

type jsonRepo struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex
	data *Data
}

type jsonParams struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

func NewJSON(p jsonParams) (Repository, error) {
	r := newJSON(p.Config.Backend.UsersPath, p.Log)

	p.LC.Append(fx.Hook{
		OnStop: r.stop,
	})

	return r, nil
}

// NewMemory returns a repository that is never written to disk.
func NewMemory(accounts ...model.Account) Repository {
	r := &jsonRepo{log: zap.NewNop(), data: &Data{}}
	for i := range accounts {
		_ = r.AddAccount(context.Background(), &accounts[i])
	}
	return r
}

func newJSON(path string, log *zap.Logger) *jsonRepo {
	r := &jsonRepo{
		path: path,
		log:  log,
		data: &Data{},
	}

	if path == "" {
		return r
	}

	err := r.readfile()
	if err != nil {
		// only log, data will be empty and will overwrite when
		// the service is stopped
		r.log.Warn("failed reading json repo data file", zap.Error(err))
	}
	return r
}

func (r *jsonRepo) stop(_ context.Context) error {
	if r.path == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writefile()
}

func (r *jsonRepo) readfile() error {
	finfo, err := os.Stat(r.path)
	if err != nil {
		return err
	}

	if finfo.IsDir() {
		return errTableFileIsDir
	}

	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(&r.data)
}

func (r *jsonRepo) writefile() error {
	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	_, err = f.Write(b)
	return err
}

func (r *jsonRepo) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.data.Accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}

	return nil, ErrNotFound
}

func (r *jsonRepo) GetAccountByID(_ context.Context, id int64) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.data.Accounts {
		if a.ID == id {
			return &a, nil
		}
	}

	return nil, ErrNotFound
}

func (r *jsonRepo) AddAccount(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.data.Accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return ErrExists
		}
	}

	account.ID = 1
	l := len(r.data.Accounts)
	if l > 0 {
		account.ID = r.data.Accounts[l-1].ID + 1
	}

	r.data.Accounts = append(r.data.Accounts, *account)
	return nil
}

func (r *jsonRepo) GetAccounts(_ context.Context) ([]model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.Account(nil), r.data.Accounts...), nil
}
