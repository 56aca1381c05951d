package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bookingHandler "github.com/salonhq/booking-api/internal/handler/booking"
	healthHandler "github.com/salonhq/booking-api/internal/handler/health"
	vendorHandler "github.com/salonhq/booking-api/internal/handler/vendor"
	"github.com/salonhq/booking-api/internal/middleware"
	"github.com/salonhq/booking-api/pkg/validator"
)

type Config struct {
	RateLimit        int
	RateWindow       time.Duration
	RequestTimeout   time.Duration
	CORS             middleware.CORSConfig
	MetricsNamespace string
}

func DefaultConfig() Config {
	return Config{
		RateLimit:        100,
		RateWindow:       time.Minute,
		RequestTimeout:   30 * time.Second,
		CORS:             middleware.DefaultCORSConfig(),
		MetricsNamespace: "booking_api",
	}
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	metrics *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(auth *middleware.AuthMiddleware, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	validator.RegisterCustomValidations()
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		metrics: initRouterMetrics(config.MetricsNamespace),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.CORS(config.CORS),
	)

	rateLimiter := middleware.NewRateLimiter(config.RateLimit, config.RateWindow)
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Setup mounts all routes: health and metrics at the root, discovery
// endpoints unauthenticated, everything else behind the auth middleware.
func (r *Router) Setup(
	healthH *healthHandler.Handler,
	bookingH *bookingHandler.Handler,
	vendorH *vendorHandler.Handler,
) {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	healthH.RegisterRoutes(r.engine.Group(""))

	public := r.engine.Group("/api/v1")
	vendorH.RegisterPublicRoutes(public)
	bookingH.RegisterPublicRoutes(public)

	authed := r.engine.Group("/api/v1", r.auth.Authenticate())
	vendorH.RegisterRoutes(authed)
	bookingH.RegisterRoutes(authed)
}

func initRouterMetrics(namespace string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
