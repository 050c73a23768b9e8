package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentcal/internal/infra/config"
	"rentcal/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Quote(c *gin.Context)
}

type SessionHTTP interface {
	Open(c *gin.Context)
	Tap(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Close(c *gin.Context)
}

type HostCalendarHTTP interface {
	SaveAdjustments(c *gin.Context)
}

type Handlers struct {
	Availability AvailabilityHTTP
	Sessions     SessionHTTP
	HostCalendar HostCalendarHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", clientKeyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.POST("/listings/:id/quote", h.Availability.Quote)
	}
	if h.Sessions != nil {
		sessions := api.Group("/calendar-sessions")
		sessions.POST("", h.Sessions.Open)
		sessions.GET("/:sid", h.Sessions.Get)
		sessions.POST("/:sid/taps", h.Sessions.Tap)
		sessions.POST("/:sid/confirm", h.Sessions.Confirm)
		sessions.DELETE("/:sid", h.Sessions.Close)
	}
	if h.HostCalendar != nil {
		api.PUT("/host/listings/:id/adjustments", h.HostCalendar.SaveAdjustments)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
