// Package identity carries the authenticated caller through a request context.
// Authentication itself happens upstream; this package only trusts what it is given.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Header is the request header set by the upstream authentication layer.
const Header = "X-User-ID"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying userID as the current user.
func NewContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFromContext returns the current user stored in ctx.
func UserFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
