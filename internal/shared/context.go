package shared

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Actor identifies the authenticated principal performing a request.
// It is established upstream (gateway) and carried explicitly so services
// never reach back into framework request objects.
type Actor struct {
	OrgID  uuid.UUID
	UserID uuid.UUID
	Role   string
}

// ErrNoActor indicates the context carries no actor.
var ErrNoActor = errors.New("no actor in context")

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.OrgID == uuid.Nil {
		return Actor{}, ErrNoActor
	}
	return actor, nil
}
