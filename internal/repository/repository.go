package repository

import (
	"context"
	"errors"

	"github.com/ghaggin/citas/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Repository holds the stub backend's accounts.
type Repository interface {
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	AddAccount(ctx context.Context, account *model.Account) error
	GetAccounts(ctx context.Context) ([]model.Account, error)
}
