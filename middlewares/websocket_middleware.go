package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/utils"
)

// WebSocketAuthMiddleware authenticates the upgrade request. Browsers cannot
// set headers on WebSocket connects, so the token travels as a query param.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("role", claims.Role)
		c.Set("user_id", claims.UserID)

		c.Next()
	}
}
