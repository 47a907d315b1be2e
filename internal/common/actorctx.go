package common

import "context"

type ctxKey string

const actorIDKey ctxKey = "actor/id"

// WithActorID stores the acting clerk or cashier identifier on the context.
// The value comes from the X-Actor-ID header; it is an audit hint, not an
// authentication claim.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// ActorID extracts the acting clerk identifier from the context if present.
func ActorID(ctx context.Context) (string, bool) {
	v := ctx.Value(actorIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
