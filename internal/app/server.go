package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/ucouncil/portal/backend/go-services/handlers"
	"github.com/ucouncil/portal/backend/go-services/internal/config"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/internal/editing/handler"
	"github.com/ucouncil/portal/backend/go-services/internal/locks"
	"github.com/ucouncil/portal/backend/go-services/internal/users"
	"github.com/ucouncil/portal/backend/go-services/pkg/logger"
	"github.com/ucouncil/portal/backend/go-services/pkg/metrics"
	"github.com/ucouncil/portal/backend/go-services/pkg/middleware"
)

// Options carries everything the HTTP server is assembled from. Nil
// collaborators switch the matching feature off.
type Options struct {
	Config   *config.Config
	Stores   Stores
	Users    *users.Service
	Verifier middleware.Verifier
	Redis    *redis.Client
	Archiver editing.Archiver
	Probes   map[string]handlers.Probe
	Started  time.Time
	// Registry collects the portal metrics; a fresh one is created when nil.
	Registry *prometheus.Registry
	// Ticker replaces the sweep ticker; tests only.
	Ticker editing.TickerFunc
}

// Server is the assembled portal: the gin engine plus the owned sweep task.
type Server struct {
	Engine  *gin.Engine
	Sweeper *editing.Sweeper
}

func NewServer(o Options) *Server {
	cfg := o.Config
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestMetrics(), gin.Logger(), gin.Recovery(), cors())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && o.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(o.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	handlers.RegisterHealth(r, o.Started, o.Probes)
	handlers.RegisterSwagger(r, editing.Kinds...)
	reg := o.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	var coordOpts []editing.Option
	if o.Users != nil {
		coordOpts = append(coordOpts, editing.WithDirectory(o.Users))
	}
	if o.Archiver != nil {
		coordOpts = append(coordOpts, editing.WithArchiver(o.Archiver))
	}
	var coords []*editing.Coordinator
	for _, k := range editing.Kinds {
		if st, ok := o.Stores[k]; ok {
			coords = append(coords, editing.NewCoordinator(k, st, coordOpts...))
		}
	}

	api := r.Group("/api/v1")
	if o.Verifier != nil {
		api.Use(middleware.AuthMiddleware(o.Verifier))
	} else {
		logger.Warnf("no token verifier configured; API trusts the userId in request bodies")
	}
	api.GET("/me", me(o.Users))
	handler.RegisterRoutes(api, coords...)

	sweepOpts := []editing.SweeperOption{
		editing.WithTTL(cfg.Editing.LeaseTTL),
		editing.WithInterval(cfg.Editing.SweepInterval),
		editing.WithObserver(func(res editing.SweepResult) {
			if res.Cleared > 0 {
				logger.Infof("lease sweep cleared %d stale lease(s)", res.Cleared)
			}
		}),
	}
	if o.Redis != nil {
		guard := locks.NewRedisGuard(o.Redis, cfg.Editing.SweepLockKey, locks.WindowTTL(cfg.Editing.SweepInterval))
		sweepOpts = append(sweepOpts, editing.WithGuard(guard))
	}
	if o.Ticker != nil {
		sweepOpts = append(sweepOpts, editing.WithTicker(o.Ticker))
	}
	return &Server{
		Engine:  r,
		Sweeper: editing.NewSweeper(o.Stores, sweepOpts...),
	}
}

func me(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.Claims(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"message": "authentication not configured"})
			return
		}
		if svc != nil {
			u, err := svc.UpsertFromClaims(c.Request.Context(), claims)
			if err == nil && u != nil {
				c.JSON(http.StatusOK, gin.H{"user": u})
				return
			}
			if err != nil {
				logger.Warnf("upsert member %s: %v", middleware.Subject(c), err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	}
}

// cors is the permissive policy used by the portal frontend in development.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+middleware.RequestIDHeader)
		h.Set("Access-Control-Expose-Headers", "Content-Length, "+middleware.RequestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
