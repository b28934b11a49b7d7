package rbac

import (
	"context"
	"net/http"

	"barista/internal/domain"
)

// Authorizer grants a permission when it appears in the verified claims.
// It is a pure check over (claims, permission); no state, no I/O.
type Authorizer struct{}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

func (a *Authorizer) Require(_ context.Context, claims domain.Claims, permission string) error {
	if permission == "" {
		return nil
	}
	perms, ok := claims.Permissions()
	if !ok {
		// The claims shape does not support permissions at all, which is
		// distinct from the permission simply being absent.
		return domain.NewAuthError(domain.AuthCodeInvalidClaims, http.StatusBadRequest, "permissions not included in claims")
	}
	for _, perm := range perms {
		if perm == permission {
			return nil
		}
	}
	return domain.NewAuthError(domain.AuthCodeUnauthorized, http.StatusForbidden, "permission not found")
}
