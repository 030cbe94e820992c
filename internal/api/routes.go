package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerRoutes sets up the public endpoints on the gin router.
func registerRoutes(router *gin.Engine, deps Deps) {
	router.GET("/healthz", handleHealth())

	router.GET("/lead-session", handleGetSession(deps))
	router.POST("/lead-session", handlePostSession(deps))
	router.POST("/send-lead", handleSendLead(deps))
	router.POST("/whatsapp-fallback", handleFallback(deps))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
