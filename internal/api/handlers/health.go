package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"selenex/pkg/response"
)

func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UnixMilli(),
	})
}
