package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP returns an AllowFunc that bypasses rate limiting for
// requests from private or loopback addresses.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		return isPrivate(ipFromCtx(c))
	}
}

// PrivateOnly rejects requests that do not come from a private or
// loopback address. Guards debug-only endpoints.
func PrivateOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isPrivate(ipFromCtx(c)) {
			c.AbortWithStatus(404)
			return
		}
		c.Next()
	}
}

func isPrivate(addr string) bool {
	parsed := net.ParseIP(addr)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate()
}
