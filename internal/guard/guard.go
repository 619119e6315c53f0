// Package guard serializes state-changing calls per entity.
//
// At most one mutation per entity id is in flight at a time. A second request for an id that is
// still pending is rejected synchronously with [ErrRejected] and never reaches the network.
// Mutations on different ids run independently.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrRejected is returned when a mutation for the same entity is already in flight.
// Callers should drop it silently; it exists to absorb double submissions.
var ErrRejected = errors.New("mutation already in flight")

// Guard tracks the set of entity ids with an in-flight mutation. The zero value is ready to use.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New returns an empty [Guard].
func New() *Guard {
	return &Guard{inFlight: make(map[string]struct{})}
}

// Run executes op for id unless a mutation for id is already in flight.
//
// The id is released when op returns, fails, or panics, before Run returns.
func Run[T any](ctx context.Context, g *Guard, id string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if !g.acquire(id) {
		return zero, fmt.Errorf("%w: %s", ErrRejected, id)
	}
	defer g.release(id)

	return op(ctx)
}

// Do is [Run] for operations without a result.
func (g *Guard) Do(ctx context.Context, id string, op func(context.Context) error) error {
	_, err := Run(ctx, g, id, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// InFlight reports whether id currently has a pending mutation.
func (g *Guard) InFlight(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[id]
	return ok
}

// Len returns the number of ids currently in flight.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}

func (g *Guard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}
	if _, busy := g.inFlight[id]; busy {
		return false
	}
	g.inFlight[id] = struct{}{}
	return true
}

func (g *Guard) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, id)
}
