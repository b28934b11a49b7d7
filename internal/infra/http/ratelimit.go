package http

import (
	"net/http"
	"strconv"
	"time"

	"barista/internal/domain"

	"github.com/gin-gonic/gin"
)

// enforceRateLimit counts the request against a per-route window, keyed by
// token subject when one is present and client address otherwise. The limiter
// failing open is deliberate: a broken redis must not take the API down.
func (s *Server) enforceRateLimit(c *gin.Context, routeID string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := "route:" + routeID
	if claims, ok := getClaims(c); ok && claims.Subject() != "" {
		key += ":subject:" + claims.Subject()
	} else {
		key += ":ip:" + c.ClientIP()
	}

	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		writeStatus(c, http.StatusTooManyRequests, "too many requests")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
