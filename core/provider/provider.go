// Package provider turns several unreliable upstream sources into one fetch
// contract. Sources are tried in a fixed priority order until one answers and
// each answer carries the confidence of the source that produced it.
package provider

import (
	"context"
	"time"
)

// Source is one upstream of a provider. Fetch returns the data and the
// confidence in [0,1] the source attaches to it.
type Source[Q, T any] interface {
	Name() string
	Fetch(ctx context.Context, q Q) (T, float64, error)
}

// Result is the outcome of a chain fetch.
type Result[T any] struct {
	Data       T         `json:"data"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	FetchedAt  time.Time `json:"fetched_at"`
	// Local marks answers produced in process, which are never cached.
	Local bool `json:"-"`
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[Q, T any] struct {
	ID string
	Fn func(ctx context.Context, q Q) (T, float64, error)
}

func (s SourceFunc[Q, T]) Name() string { return s.ID }

func (s SourceFunc[Q, T]) Fetch(ctx context.Context, q Q) (T, float64, error) {
	return s.Fn(ctx, q)
}

// Local is implemented by sources that need no I/O, such as synthetic
// generators. A chain still consults them after its context is done.
type Local interface {
	Local() bool
}

// IsLocal reports whether s declares itself local.
func IsLocal(s any) bool {
	l, ok := s.(Local)
	return ok && l.Local()
}
