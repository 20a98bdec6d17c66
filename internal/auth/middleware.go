package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the authenticated user id.
const IdentityKey = "identity"

// Middleware validates the Authorization header and injects the identity
// into the request context. Requests without a valid token never reach a
// handler.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := v.Verify(c.Request.Context(), TokenFromRequest(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing credentials",
			})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// Identity returns the authenticated user id for the current request.
func Identity(c *gin.Context) string {
	id, _ := c.Get(IdentityKey)
	s, _ := id.(string)
	return s
}

// TokenFromRequest extracts a bearer token from the Authorization header or,
// for websocket handshakes where headers are awkward for browsers, the
// "token" query parameter.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
