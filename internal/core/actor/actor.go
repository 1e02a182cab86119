// Package actor provides the identity of whoever performs a stock mutation.
// The identity travels in the context and is stamped on every ledger entry
// for audit attribution.
package actor

import (
	"context"
)

// Actor identifies the person or job that performed a mutation.
type Actor struct {
	ID   string
	Name string
	// Kind distinguishes humans from scheduled jobs ("user", "system")
	Kind string
}

// System returns the identity used by scheduled sweeps and migrations.
func System(name string) Actor {
	return Actor{ID: "system", Name: name, Kind: "system"}
}

type actorKey struct{}

// WithActor adds the actor to the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor from context, or a zero Actor.
func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}

// IDFromContext returns the actor ID from context or empty string.
func IDFromContext(ctx context.Context) string {
	return FromContext(ctx).ID
}
