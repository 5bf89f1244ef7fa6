package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"tally/voteboard/pkg/response"
)

const healthTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health handles GET /health. It never touches the store.
func Health(c *gin.Context) {
	response.OK(c, HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(healthTimeLayout),
	})
}
