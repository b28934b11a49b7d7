package policyopa

import (
	"context"
	"net/http"

	"barista/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.barista.authz.allow"

// Authorizer evaluates a compiled rego bundle instead of checking claim
// membership in-process. The bundle decides data.barista.authz.allow from
// input {"permissions": [...], "permission": "..."}; the claims-shape check
// and the error taxonomy stay identical to the rbac gate.
type Authorizer struct {
	query rego.PreparedEvalQuery
}

func NewAuthorizerFromBundlePath(ctx context.Context, bundlePath string) (*Authorizer, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Authorizer{query: prepared}, nil
}

func (a *Authorizer) Require(ctx context.Context, claims domain.Claims, permission string) error {
	if permission == "" {
		return nil
	}
	perms, ok := claims.Permissions()
	if !ok {
		return domain.NewAuthError(domain.AuthCodeInvalidClaims, http.StatusBadRequest, "permissions not included in claims")
	}
	input := map[string]any{
		"permissions": perms,
		"permission":  permission,
	}
	results, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return err
	}
	if allowed(results) {
		return nil
	}
	return domain.NewAuthError(domain.AuthCodeUnauthorized, http.StatusForbidden, "permission not found")
}

func allowed(results rego.ResultSet) bool {
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}
	allow, ok := results[0].Expressions[0].Value.(bool)
	return ok && allow
}

var _ domain.Authorizer = (*Authorizer)(nil)
