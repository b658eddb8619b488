package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhub/internal/metrics"
	"tutorhub/internal/principal"
)

const (
	// LegacyTokenHeader carries a raw token for clients that predate the Authorization header.
	LegacyTokenHeader = "x-auth-token"

	identityKey = "identity"
)

// Verifier validates credential headers.
type Verifier interface {
	VerifyHeader(header string) (principal.Identity, error)
}

// Middleware enforces a valid session token and stores the verified identity on the context.
func Middleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			header = c.GetHeader(LegacyTokenHeader)
		}
		id, err := v.VerifyHeader(header)
		if err != nil {
			code := errorCode(err)
			metrics.AuthFailures.WithLabelValues(code).Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(c *gin.Context) (principal.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return principal.Identity{}, false
	}
	id, ok := v.(principal.Identity)
	return id, ok
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrExpiredToken):
		return "expired_token"
	default:
		return "malformed_token"
	}
}
