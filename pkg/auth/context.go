package auth

import (
	"context"
	"fmt"
	"time"
)

type contextKey string

const userContextKey contextKey = "user_context"

// UserContext carries the authenticated user through the request context
type UserContext struct {
	UserID          string
	Email           string
	AuthenticatedAt time.Time
}

// WithUser attaches a user context to the request context
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the authenticated user from the context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	return user, nil
}
