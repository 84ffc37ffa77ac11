package api

import (
	"net/http"
	"strconv"

	"alcyxob/mindtrack-app/internal/catalog"
	"alcyxob/mindtrack-app/internal/realtime"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires the relay server's HTTP surface: a health probe, the
// program catalog and the per-owner realtime fan-out.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	hub *realtime.Hub,
	programCatalog *catalog.Catalog,
) {
	realtimeHandler := NewRealtimeHandler(hub)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/api/v1")

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			ownerID, err := getOwnerIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get owner ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"ownerId": ownerID})
		})

		// --- Program Catalog ---
		catalogGroup := protected.Group("/catalog")
		{
			catalogGroup.GET("/days", func(c *gin.Context) {
				days, err := programCatalog.Days(c.Request.Context())
				if err != nil {
					abortWithError(c, http.StatusInternalServerError, "Failed to load program content")
					return
				}
				c.JSON(http.StatusOK, days)
			})

			catalogGroup.GET("/days/:day", func(c *gin.Context) {
				day, err := strconv.Atoi(c.Param("day"))
				if err != nil {
					abortWithError(c, http.StatusBadRequest, "Day must be a number")
					return
				}
				content, err := programCatalog.Day(c.Request.Context(), day)
				if err != nil {
					abortWithError(c, http.StatusNotFound, err.Error())
					return
				}
				c.JSON(http.StatusOK, content)
			})
		}

		// --- Realtime Fan-Out ---
		// GET /api/v1/realtime/ws upgrades to a WebSocket scoped to the
		// authenticated owner's room.
		protected.GET("/realtime/ws", realtimeHandler.Serve)
	}
}
