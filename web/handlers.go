package web

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/graph"
	"github.com/mohamedamezian/NN-Instagram/store"
	"github.com/mohamedamezian/NN-Instagram/syncer"
	"github.com/mohamedamezian/NN-Instagram/util"
)

type handlers struct {
	conf *util.AppConfig
	svc  SyncService
	runs RunStore
}

type syncRequest struct {
	Tenant string `json:"tenant"`
}

const tenantKey = "tenant"

// resolveTenant reads the tenant of a sync request from ?tenant= or the JSON
// body and stores it on the context, so limiting and the handler agree on it.
func resolveTenant(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" && c.Request.ContentLength != 0 {
		var req syncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		tenant = req.Tenant
	}
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant is required"})
		return
	}
	c.Set(tenantKey, tenant)
	c.Next()
}

func (h *handlers) sync(c *gin.Context) {
	tenant := c.GetString(tenantKey)
	log.Printf("POST /api/sync for %s", tenant)
	res := h.svc.Run(c.Request.Context(), tenant)
	if res.Err != nil {
		c.JSON(statusFor(res.Err), gin.H{"error": res.Message, "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

// statusFor maps a fatal run error to the HTTP status the caller sees.
func statusFor(err error) int {
	var apiErr *graph.APIError
	switch {
	case errors.Is(err, syncer.ErrNoAccount):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *handlers) listRuns(c *gin.Context) {
	tenant := c.Query("tenant")
	if tenant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant is required"})
		return
	}
	runs, err := h.runs.ReadSyncRuns(tenant, parseLimit(c.Query("limit")))
	if err != nil {
		log.Printf("Could not read runs of %s: %v", tenant, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read runs"})
		return
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}
	c.JSON(http.StatusOK, gin.H{"tenant": tenant, "runs": runs})
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultRunsLimit
	}
	if n > maxRunsLimit {
		return maxRunsLimit
	}
	return n
}

func (h *handlers) feed(c *gin.Context) {
	c.Header("Content-Type", "application/xml; charset=utf-8")

	tenant := c.Query("tenant")
	if tenant == "" {
		c.Render(404, render.String{Format: ""})
		return
	}
	runs, err := h.runs.ReadSyncRuns(tenant, defaultRunsLimit)
	if err != nil {
		log.Printf("Could not read runs of %s: %v", tenant, err)
		c.Render(500, render.String{Format: ""})
		return
	}
	rss, err := GetRSS(h.conf, tenant, runs)
	if err != nil {
		c.Render(404, render.String{Format: ""})
	} else {
		c.Render(200, render.String{Format: rss})
	}
}

func (h *handlers) feedItem(c *gin.Context) {
	c.Header("Content-Type", "application/xml; charset=utf-8")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Render(404, render.String{Format: ""})
		return
	}
	run, err := h.runs.ReadSyncRun(id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Could not read run %s: %v", id, err)
		}
		c.Render(404, render.String{Format: ""})
		return
	}
	rss, err := GetRSSItem(h.conf, run)
	if err != nil {
		c.Render(404, render.String{Format: ""})
	} else {
		c.Render(200, render.String{Format: rss})
	}
}
