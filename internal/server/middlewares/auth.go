package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// KeyChecker reports whether a bearer key is accepted.
type KeyChecker interface {
	Has(key string) bool
}

// BearerAuth rejects requests that don't carry a known API key in the
// Authorization header. Public routes are registered outside the authed
// group, so everything passing through here requires a key.
func BearerAuth(keys KeyChecker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			ctx.PureJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			ctx.Abort()
			return
		}

		if !keys.Has(token) {
			ctx.PureJSON(http.StatusForbidden, gin.H{
				"error": "invalid api key",
			})
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
