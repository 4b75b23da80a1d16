package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses as uncacheable. Attempt state changes on every save.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
