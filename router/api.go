package router

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SumanthNagolu/intime-v3-sub032/handlers"
	"github.com/SumanthNagolu/intime-v3-sub032/internal/config"
	"github.com/SumanthNagolu/intime-v3-sub032/services"
	"github.com/SumanthNagolu/intime-v3-sub032/workers"
)

func NewGinRouter(pg *sql.DB, redis *redis.Client) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize services
	slaService := services.NewSLAService(pg, redis, config.App.DefaultBusinessHours())
	if config.App.BusinessHoursCacheTTL > 0 {
		slaService.CacheTTL = config.App.BusinessHoursCacheTTL
	}
	notifier := workers.NewEscalationNotifier(pg, config.App.Worker.NotificationQueue)

	// Initialize handlers
	slaHandler := handlers.NewSLAHandler(slaService)

	// PUBLIC ENDPOINTS

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "postgres": "ok", "redis": "disabled"}
		code := http.StatusOK
		if err := pg.PingContext(ctx); err != nil {
			status["status"] = "degraded"
			status["postgres"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if redis != nil {
			status["redis"] = "ok"
			if err := redis.Ping(ctx).Err(); err != nil {
				// The cache is optional; lookups fall through to Postgres.
				status["redis"] = err.Error()
			}
		}
		c.JSON(code, status)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Stateless calculations
		calcRoutes := api.Group("/sla")
		{
			calcRoutes.POST("/business-minutes", slaHandler.BusinessMinutes)
			calcRoutes.POST("/elapsed", slaHandler.ElapsedTime)
			calcRoutes.POST("/deadline", slaHandler.Deadline)
			calcRoutes.POST("/status", slaHandler.EscalationStatus)
			calcRoutes.GET("/format", slaHandler.FormatMinutes)

			calcRoutes.GET("/queue", func(c *gin.Context) {
				stats, err := notifier.QueueStats(c.Request.Context())
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get queue stats", "details": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"queue": notifier.Queue, "stats": stats})
			})
		}

		// Organization scoped
		orgRoutes := api.Group("/orgs/:org_id")
		{
			orgRoutes.GET("/business-hours", slaHandler.GetBusinessHours)
			orgRoutes.PUT("/business-hours", slaHandler.UpdateBusinessHours)

			slaRoutes := orgRoutes.Group("/sla")
			{
				slaRoutes.POST("/definitions", slaHandler.CreateDefinition)
				slaRoutes.GET("/definitions/:id", slaHandler.GetDefinition)

				slaRoutes.POST("/trackers", slaHandler.StartTracker)
				slaRoutes.GET("/trackers/:id/status", slaHandler.GetTrackerStatus)
				slaRoutes.POST("/trackers/:id/complete", slaHandler.CompleteTracker)
			}
		}
	}

	return r
}
