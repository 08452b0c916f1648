package state

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// Future is the eventual result of an asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in its own goroutine. fn receives a context that keeps ctx's
// values but is never cancelled, so an abandoned future still runs to
// completion.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		f.val, f.err = fn(detached)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done. Abandoning the
// wait does not stop the operation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Async exposes a Manager through futures.
type Async struct {
	m *Manager
}

// NewAsync wraps m.
func NewAsync(m *Manager) *Async {
	return &Async{m: m}
}

// Manager returns the wrapped synchronous manager.
func (a *Async) Manager() *Manager {
	return a.m
}

// Read loads the state of p for display.
func (a *Async) Read(ctx context.Context, p property.Property) *Future[*property.State] {
	return Go(ctx, func(ctx context.Context) (*property.State, error) { return a.m.Read(ctx, p) })
}

// Get loads the state of p with device-native values.
func (a *Async) Get(ctx context.Context, p property.Property) *Future[*property.State] {
	return Go(ctx, func(ctx context.Context) (*property.State, error) { return a.m.Get(ctx, p) })
}

// Write saves patch as a user or system intent.
func (a *Async) Write(ctx context.Context, p property.Property, patch property.Patch) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) { return a.m.Write(ctx, p, patch) })
}

// Set saves patch as a device report.
func (a *Async) Set(ctx context.Context, p property.Property, patch property.Patch) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) { return a.m.Set(ctx, p, patch) })
}

// Delete removes the state record of p.
func (a *Async) Delete(ctx context.Context, p property.Property) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) { return a.m.Delete(ctx, p) })
}

// NormalizePublishValue converts a raw device value for publication.
func (a *Async) NormalizePublishValue(ctx context.Context, p property.Property, value any) *Future[any] {
	return Go(ctx, func(ctx context.Context) (any, error) { return a.m.NormalizePublishValue(ctx, p, value) })
}

// SetValidState sets the valid flag on every property concurrently.
func (a *Async) SetValidState(ctx context.Context, valid bool, props ...property.Property) *Future[bool] {
	return a.fanOut(ctx, property.Patch{}.WithValid(valid), props)
}

// SetPendingState sets or clears the pending flag on every property concurrently.
func (a *Async) SetPendingState(ctx context.Context, pending bool, props ...property.Property) *Future[bool] {
	return a.fanOut(ctx, property.Patch{}.WithPending(pending), props)
}

// fanOut issues one Set per property and resolves once all of them finish.
// The first error is returned; siblings already in flight are not cancelled.
func (a *Async) fanOut(ctx context.Context, patch property.Patch, props []property.Property) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) {
		var g errgroup.Group
		var failed atomic.Bool

		for _, p := range props {
			g.Go(func() error {
				ok, err := a.m.Set(ctx, p, patch)
				if err != nil {
					failed.Store(true)
					return fmt.Errorf("property %s: %w", p.Def().ID, err)
				}
				if !ok {
					failed.Store(true)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return false, err
		}
		return !failed.Load(), nil
	})
}
