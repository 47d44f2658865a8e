package web

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/syncer"
	"github.com/mohamedamezian/NN-Instagram/util"
	"golang.org/x/time/rate"
)

// SyncService runs one sync. Implemented by *syncer.Syncer.
type SyncService interface {
	Run(ctx context.Context, tenant string) syncer.Result
}

// RunStore reads the run journal. Implemented by *db.DB.
type RunStore interface {
	ReadSyncRuns(tenant string, limit int) ([]domain.SyncRun, error)
	ReadSyncRun(id uuid.UUID) (*domain.SyncRun, error)
}

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
	maxBodyBytes     = 64 * 1024
)

func NewRouter(conf *util.AppConfig, svc SyncService, runs RunStore) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))
	g.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": util.GetVersion()})
	})

	h := &handlers{conf: conf, svc: svc, runs: runs}

	auth := APIKeyMiddleware(conf.Conf.ApiKey)

	g.GET("/feed", auth, h.feed)
	g.GET("/feed/:id", auth, h.feedItem)

	api := g.Group("/api")
	api.Use(auth)
	{
		// a sync touches every post of a tenant, so each tenant gets few of them
		syncLimiter := NewRateLimiter(rate.Limit(0.2), 2)
		byTenant := RateLimitByMiddleware(syncLimiter, func(c *gin.Context) string {
			return c.GetString(tenantKey)
		})
		api.POST("/sync", MaxBytesMiddleware(maxBodyBytes), resolveTenant, byTenant, h.sync)
		api.GET("/runs", h.listRuns)
	}
	return g
}
