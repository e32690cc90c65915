package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghaggin/citas/internal/apiclient"
	"github.com/ghaggin/citas/internal/config"
	"github.com/ghaggin/citas/internal/model"
	"golang.org/x/sync/errgroup"
)

// Strategy turns an email/password pair into a Grant. The backend does not
// say which role an account has, so the probing strategies try each role.
type Strategy interface {
	Authenticate(ctx context.Context, a Authenticator, cred Credentials) (*Grant, error)
}

// SequentialProbe tries Roles in order and stops at the first success.
type SequentialProbe struct {
	Roles []model.Role
}

func (s SequentialProbe) Authenticate(ctx context.Context, a Authenticator, cred Credentials) (*Grant, error) {
	var last error = ErrInvalidCredentials
	for _, role := range rolesOrDefault(s.Roles) {
		g, err := a.Login(ctx, cred, role)
		if err == nil {
			return g, nil
		}
		if isFatal(err) {
			return nil, err
		}
		last = err
	}
	return nil, rejected(last)
}

// ParallelProbe sends every attempt at once, waits for all of them and then
// picks the first success in Roles order, so timing never decides the role.
type ParallelProbe struct {
	Roles []model.Role
}

func (s ParallelProbe) Authenticate(ctx context.Context, a Authenticator, cred Credentials) (*Grant, error) {
	roles := rolesOrDefault(s.Roles)
	grants := make([]*Grant, len(roles))
	errs := make([]error, len(roles))

	var g errgroup.Group
	for i, role := range roles {
		i, role := i, role
		g.Go(func() error {
			grants[i], errs[i] = a.Login(ctx, cred, role)
			return nil
		})
	}
	_ = g.Wait()

	for i := range roles {
		if errs[i] == nil && grants[i] != nil {
			revokeOthers(ctx, a, grants, i)
			return grants[i], nil
		}
	}

	var last error = ErrInvalidCredentials
	for _, err := range errs {
		if isFatal(err) {
			return nil, err
		}
		if err != nil {
			last = err
		}
	}
	return nil, rejected(last)
}

// revokeOthers drops every accepted grant except grants[keep]. Failures are
// ignored; the tokens then simply expire on the backend.
func revokeOthers(ctx context.Context, a Authenticator, grants []*Grant, keep int) {
	r, ok := a.(Revoker)
	if !ok {
		return
	}

	var g errgroup.Group
	for i, grant := range grants {
		if i == keep || grant == nil || grant.Token == "" {
			continue
		}
		token := grant.Token
		g.Go(func() error {
			return r.Revoke(ctx, token)
		})
	}
	_ = g.Wait()
}

// Direct makes one untagged login and trusts the role in the response.
type Direct struct{}

func (Direct) Authenticate(ctx context.Context, a Authenticator, cred Credentials) (*Grant, error) {
	g, err := a.Login(ctx, cred, "")
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		return nil, rejected(err)
	}
	return g, nil
}

// NewStrategy picks the strategy named by auth.strategy.
func NewStrategy(cfg *config.Config) (Strategy, error) {
	switch cfg.Auth.Strategy {
	case "", "sequential":
		return SequentialProbe{Roles: model.Roles}, nil
	case "parallel":
		return ParallelProbe{Roles: model.Roles}, nil
	case "direct":
		return Direct{}, nil
	}
	return nil, fmt.Errorf("unknown auth strategy %q", cfg.Auth.Strategy)
}

func rolesOrDefault(roles []model.Role) []model.Role {
	if len(roles) == 0 {
		return model.Roles
	}
	return roles
}

// isFatal errors stop probing: the backend is unreachable or the input is bad,
// so trying another role cannot help.
func isFatal(err error) bool {
	return apiclient.IsNetwork(err) || errors.Is(err, ErrInvalidInput) || errors.Is(err, context.Canceled)
}

func rejected(err error) error {
	if errors.Is(err, ErrInvalidCredentials) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
}
