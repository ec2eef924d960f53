package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-library-api/internal/service"
)

// ClientInfo stores the caller's IP and user agent on the request context so
// audit entries written deeper in the stack can attribute them.
func ClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithClientInfo(c.Request.Context(), service.ClientInfo{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
