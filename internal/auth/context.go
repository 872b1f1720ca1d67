package auth

import (
	"context"

	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
)

type actorContextKey struct{}

// WithActor returns a context carrying the authenticated actor.
func WithActor(ctx context.Context, actor lifecycle.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (lifecycle.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(lifecycle.Actor)
	return actor, ok
}
