package routes

import (
	"net/http"

	"outpass-control/internal/utils"

	"github.com/gin-gonic/gin"
)

func Health(r *gin.RouterGroup) {

	r.GET("/health", func(c *gin.Context) {
		err, store := GetStorageProvider(c)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		if _, err := store.GetSchemaVersion(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": utils.GetVersion()})
	})
}
