package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alex-lapipa/lawton-engine/internal/service"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// ServiceKeyHeader carries the shared secret on protected routes.
const ServiceKeyHeader = "X-Lawton-Service-Key"

// ServiceKeyAuth rejects requests whose service key header does not equal secret.
// With an empty secret every request is rejected.
func ServiceKeyAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(ServiceKeyHeader)
		if secret == "" || key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
			log.Warnf("[ServiceKeyAuth] rejected %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}
