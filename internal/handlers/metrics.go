package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics serves the Prometheus registry in text exposition format.
// GET /metrics
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{}))
}
