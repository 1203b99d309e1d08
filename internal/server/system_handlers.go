package server

import (
	"net/http"

	"shapeup/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// Metrics serves the Prometheus text exposition.
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
