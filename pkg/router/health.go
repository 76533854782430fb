package router

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	healthHandler := func(c *gin.Context) {
		components := r.Container.Health.GetStatus()

		status := http.StatusOK
		overall := "ok"
		if !r.Container.Health.IsSystemHealthy() {
			status = http.StatusServiceUnavailable
			overall = "unavailable"
		}

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(status, gin.H{
			"status":         overall,
			"version":        os.Getenv("APP_VERSION"),
			"timestamp":      time.Now().Format(time.RFC3339),
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
			"components":     components,
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	}

	r.Engine.GET("/health", healthHandler)
}
