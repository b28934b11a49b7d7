package http

import (
	"net/http"

	"barista/internal/domain"

	"github.com/gin-gonic/gin"
)

const claimsContextKey = "claims"

// requireAuth runs the verify-then-gate stage for a protected route. The
// returned bool reports whether the handler body may run; on false the error
// response has already been written.
func (s *Server) requireAuth(c *gin.Context, permission string) (domain.Claims, bool) {
	if s.cfg.AuthMode == "none" {
		return domain.Claims{}, true
	}
	if s.authInitErr != nil || s.authenticator == nil {
		writeStatus(c, http.StatusInternalServerError, "auth configuration error")
		return domain.Claims{}, false
	}
	claims, err := s.authenticator.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		writeError(c, err)
		return domain.Claims{}, false
	}
	if s.authorizer != nil {
		if err := s.authorizer.Require(c.Request.Context(), claims, permission); err != nil {
			writeError(c, err)
			return domain.Claims{}, false
		}
	}
	c.Set(claimsContextKey, claims)
	return claims, true
}

func getClaims(c *gin.Context) (domain.Claims, bool) {
	raw, ok := c.Get(claimsContextKey)
	if !ok {
		return domain.Claims{}, false
	}
	claims, ok := raw.(domain.Claims)
	return claims, ok
}
