package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentathing/utils"
)

// HealthHandler reports liveness together with the last dependency snapshot.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	healthy := status.Mongo
	for _, ok := range status.Redis {
		healthy = healthy && ok
	}
	state := "ok"
	if !healthy {
		state = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": state, "message": "Hi, I'm Rentathing", "dependencies": status})
}
