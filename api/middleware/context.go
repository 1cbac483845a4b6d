package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/luhive/luhive-backend/pkg/enums"
)

// Principal is the authenticated caller that Auth attaches to the request.
type Principal struct {
	UserID      uuid.UUID
	Role        enums.SystemRole
	SessionID   string
	AccessToken string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext is false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

// UserIDFromContext returns "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.SystemRole {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

func AccessTokenFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.AccessToken
}
