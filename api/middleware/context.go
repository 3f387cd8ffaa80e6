package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxActorID    contextKey = "actor_id"
	ctxRole       contextKey = "actor_role"
	ctxBusinessID contextKey = "business_id"
)

// Actor is the caller identity established by the Actor middleware.
type Actor struct {
	ID         uuid.UUID
	Role       string
	BusinessID uuid.UUID
}

func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func BusinessIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxBusinessID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// ActorFromContext bundles the identity values stored on ctx.
func ActorFromContext(ctx context.Context) Actor {
	return Actor{
		ID:         ActorIDFromContext(ctx),
		Role:       RoleFromContext(ctx),
		BusinessID: BusinessIDFromContext(ctx),
	}
}

// WithActor injects the caller identity into the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxActorID, actor.ID)
	ctx = context.WithValue(ctx, ctxRole, actor.Role)
	return context.WithValue(ctx, ctxBusinessID, actor.BusinessID)
}
