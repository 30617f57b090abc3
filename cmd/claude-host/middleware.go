package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsMiddleware allows any origin to reach the HTTP and WebSocket routes;
// origin restriction for WebSocket upgrades is enforced separately in
// frontdoor's checkWebSocketOrigin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, x-dev-user, x-dev-auth-secret, x-executor-token, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version, Sec-WebSocket-Protocol")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
