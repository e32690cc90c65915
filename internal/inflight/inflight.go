// Package inflight tracks "loading" state for user-triggered operations so
// a double-submitted action never reaches the backend twice.
package inflight

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

var ErrInFlight = errors.New("operation already in progress")

// Guard keys operations by name. The busy flag for a key is set before the
// operation starts and cleared when it returns, whatever the outcome.
type Guard struct {
	group singleflight.Group

	mu   sync.Mutex
	busy map[string]int
}

func New() *Guard {
	return &Guard{busy: map[string]int{}}
}

func (g *Guard) enter(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy[key]++
	return g.busy[key] == 1
}

func (g *Guard) leave(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy[key]--
	if g.busy[key] <= 0 {
		delete(g.busy, key)
	}
}

// Busy reports whether an operation for key is running.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy[key] > 0
}

// Do runs fn for key. Callers arriving while it runs wait for and share the
// same result instead of starting a second call. shared reports whether the
// result was handed to more than one caller.
func Do[T any](ctx context.Context, g *Guard, key string, fn func(ctx context.Context) (T, error)) (v T, shared bool, err error) {
	res, err, shared := g.group.Do(key, func() (any, error) {
		g.enter(key)
		defer g.leave(key)
		return fn(ctx)
	})
	if res != nil {
		v = res.(T)
	}
	return v, shared, err
}

// TryDo runs fn for key unless one is already running, in which case it
// returns ErrInFlight immediately.
func TryDo[T any](ctx context.Context, g *Guard, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !g.enter(key) {
		g.leave(key)
		return zero, ErrInFlight
	}
	defer g.leave(key)
	return fn(ctx)
}
