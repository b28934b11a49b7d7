package domain

import "context"

// Claims is the decoded, verified payload of a bearer token. The raw claim
// map is kept as-is; accessors pull out the pieces the service cares about.
type Claims struct {
	Raw map[string]any
}

func (c Claims) Subject() string {
	sub, _ := c.Raw["sub"].(string)
	return sub
}

// Permissions returns the permission strings carried by the token. The second
// return is false when the claims carry no permissions collection at all,
// which is distinct from an empty one.
func (c Claims) Permissions() ([]string, bool) {
	raw, ok := c.Raw["permissions"]
	if !ok {
		return nil, false
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	perms := make([]string, 0, len(entries))
	for _, entry := range entries {
		if perm, ok := entry.(string); ok {
			perms = append(perms, perm)
		}
	}
	return perms, true
}

type Authenticator interface {
	// Authenticate takes the raw Authorization header value and returns
	// verified claims, or an *AuthError describing the failure.
	Authenticate(ctx context.Context, authorizationHeader string) (Claims, error)
}

type Authorizer interface {
	// Require returns nil when the claims authorize the permission, or an
	// *AuthError otherwise.
	Require(ctx context.Context, claims Claims, permission string) error
}
