package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

func Home(storeName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": storeName, "status": "ok"})
	}
}

// Health reports 503 while the store does not answer a ping.
func Health(ping func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /healthz"
		if err := ensureStore(c.Request.Context(), ping); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
