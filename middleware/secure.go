package middleware

import (
	"net/http"
	"strings"

	"tripnest/config"

	"github.com/gin-gonic/gin"
)

// RequireSecureTransport refuses payment traffic over plaintext HTTP in
// production. Only opaque tokens cross this boundary, but they still
// never travel unencrypted.
func RequireSecureTransport() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.IsProduction() {
			c.Next()
			return
		}
		if c.Request.TLS != nil {
			c.Next()
			return
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); strings.EqualFold(proto, "https") {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUpgradeRequired, gin.H{
			"error": "payment operations require a secure connection",
		})
	}
}
