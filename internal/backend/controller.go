package backend

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/model"
	"github.com/ghaggin/citas/internal/repository"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials = errors.New("bad credentials")
	ErrBadToken       = errors.New("bad token")
)

// Controller holds the stub backend's state: accounts come from the
// repository, entity records live in memory. Tokens are signed JWTs whose
// jti must also be in the active set, so logout can revoke them.
type Controller struct {
	repo   repository.Repository
	log    *zap.Logger
	secret []byte
	ttl    time.Duration

	mu       sync.RWMutex
	tokens   map[string]int64
	entities map[string]map[int64]Record
	nextID   map[string]int64
}

// Record is one row of a CRUD resource.
type Record map[string]any

type ControllerParams struct {
	fx.In

	Logger *zap.Logger
	Repo   repository.Repository
	Config *config.Config
}

func NewController(p ControllerParams) (*Controller, error) {
	cfg := p.Config.Backend

	secret := cfg.TokenSecret
	if secret == "" {
		p.Logger.Warn("no token secret configured, tokens will not survive a restart")
		secret = uuid.NewString()
	}

	return &Controller{
		log:      p.Logger,
		repo:     p.Repo,
		secret:   []byte(secret),
		ttl:      cfg.TokenTTL,
		tokens:   map[string]int64{},
		entities: map[string]map[int64]Record{},
		nextID:   map[string]int64{},
	}, nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(b), err
}

// ValidateLogin checks email+password and, when tipo is set, that the account
// has that role. It issues a fresh token on success.
func (c *Controller) ValidateLogin(ctx context.Context, email, password string, tipo model.Role) (string, *model.User, error) {
	a, err := c.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrBadCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}

	if tipo != "" && tipo != a.Tipo {
		return "", nil, ErrBadCredentials
	}

	token, err := c.issue(a)
	if err != nil {
		return "", nil, err
	}
	u := a.User
	return token, &u, nil
}

func (c *Controller) CreateAccount(ctx context.Context, user model.User, password string) (string, *model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return "", nil, err
	}

	a := &model.Account{User: user, PasswordHash: hash}
	if err := c.repo.AddAccount(ctx, a); err != nil {
		return "", nil, err
	}

	token, err := c.issue(a)
	if err != nil {
		return "", nil, err
	}
	u := a.User
	return token, &u, nil
}

func (c *Controller) issue(a *model.Account) (string, error) {
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":  jti,
		"sub":  strconv.FormatInt(a.ID, 10),
		"tipo": a.Tipo.String(),
		"exp":  time.Now().Add(c.ttl).Unix(),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		c.log.Error("error signing token", zap.Error(err))
		return "", err
	}

	c.mu.Lock()
	c.tokens[jti] = a.ID
	c.mu.Unlock()

	return signed, nil
}

// parse verifies the signature and expiry and returns the token's jti.
func (c *Controller) parse(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return c.secret, nil
	})
	if err != nil {
		return "", ErrBadToken
	}

	if claims, ok := parsed.Claims.(jwt.MapClaims); ok && parsed.Valid {
		if jti, ok := claims["jti"].(string); ok && jti != "" {
			return jti, nil
		}
	}
	return "", ErrBadToken
}

// Authenticate resolves a bearer token to its user.
func (c *Controller) Authenticate(ctx context.Context, token string) (*model.User, error) {
	jti, err := c.parse(token)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	id, ok := c.tokens[jti]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrBadToken
	}

	a, err := c.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, ErrBadToken
	}
	u := a.User
	return &u, nil
}

// Revoke forgets token. Unparseable tokens are ignored.
func (c *Controller) Revoke(token string) {
	jti, err := c.parse(token)
	if err != nil {
		return
	}

	c.mu.Lock()
	delete(c.tokens, jti)
	c.mu.Unlock()
}

func (c *Controller) List(resource string, filter map[string]string) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int64, 0, len(c.entities[resource]))
	for id := range c.entities[resource] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []Record{}
	for _, id := range ids {
		rec := c.entities[resource][id]
		if matches(rec, filter) {
			out = append(out, clone(rec))
		}
	}
	return out
}

func (c *Controller) Get(resource string, id int64) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.entities[resource][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(rec), nil
}

func (c *Controller) Create(resource string, rec Record) Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entities[resource] == nil {
		c.entities[resource] = map[int64]Record{}
	}
	c.nextID[resource]++
	id := c.nextID[resource]

	stored := clone(rec)
	stored["id"] = id
	c.entities[resource][id] = stored
	return clone(stored)
}

func (c *Controller) Update(resource string, id int64, rec Record) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.entities[resource][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for k, v := range rec {
		if k != "id" {
			stored[k] = v
		}
	}
	return clone(stored), nil
}

func (c *Controller) Delete(resource string, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entities[resource][id]; !ok {
		return repository.ErrNotFound
	}
	delete(c.entities[resource], id)
	return nil
}

func matches(rec Record, filter map[string]string) bool {
	for k, want := range filter {
		v, ok := rec[k]
		if !ok {
			return false
		}
		var got string
		switch t := v.(type) {
		case string:
			got = t
		case float64:
			got = strconv.FormatFloat(t, 'f', -1, 64)
		case int64:
			got = strconv.FormatInt(t, 10)
		default:
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}

func clone(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
