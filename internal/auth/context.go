package auth

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Actor is the caller identity resolved by the transport middleware.
type Actor struct {
	ID         string
	MerchantID string
	Role       Role
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor placed by middleware. When no actor is
// resolvable the least-privileged fallback is returned instead; a missing
// identity must never bypass the mutation router.
func FromContext(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorKey{}).(Actor); ok {
		return actor
	}
	return Fallback()
}

// Fallback synthesizes an anonymous least-privileged actor.
func Fallback() Actor {
	return Actor{
		ID:   "anonymous-" + uuid.New().String(),
		Role: RoleMember,
	}
}
