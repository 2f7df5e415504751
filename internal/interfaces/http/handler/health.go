package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkhub-api/internal/infrastructure/persistence/postgres"
	"linkhub-api/pkg/metrics"
)

// DatabaseProbe 数据库健康检查
type DatabaseProbe interface {
	HealthCheck(ctx context.Context) error
	Stats() postgres.PoolStat
}

// CacheProbe 缓存健康检查
type CacheProbe interface {
	HealthCheck(ctx context.Context) error
}

// DrainState 租户事务守卫状态
type DrainState interface {
	Draining() bool
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	pg      DatabaseProbe
	redis   CacheProbe
	guard   DrainState
}

// NewHealthHandler 创建健康检查处理器，redis 可以为 nil
func NewHealthHandler(version string, pg DatabaseProbe, redisClient CacheProbe, guard DrainState) *HealthHandler {
	return &HealthHandler{
		version: version,
		pg:      pg,
		redis:   redisClient,
		guard:   guard,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status   string                     `json:"status"`
	Draining bool                       `json:"draining"`
	Checks   map[string]*readinessCheck `json:"checks,omitempty"`
	Pool     *postgres.PoolStat         `json:"pool,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready 就绪检查接口
//
// 守卫排空期间返回 503，负载均衡器据此摘除实例。
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := readinessResponse{
		Status: "ok",
		Checks: map[string]*readinessCheck{},
	}
	ready := true

	if h.guard != nil && h.guard.Draining() {
		resp.Draining = true
		ready = false
	}

	// Postgres（必需）
	if h.pg == nil {
		resp.Checks["postgres"] = &readinessCheck{Status: "missing", Error: "postgres client not configured"}
		ready = false
	} else {
		check := probe(ctx, h.pg.HealthCheck)
		resp.Checks["postgres"] = check
		if check.Status != "ok" {
			ready = false
		}
		stats := h.pg.Stats()
		resp.Pool = &stats
		metrics.PoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns))
		metrics.PoolConnections.WithLabelValues("acquired").Set(float64(stats.AcquiredConns))
		metrics.PoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns))
	}

	// Redis（可选：缓存失效时回源数据库，不影响就绪态）
	if h.redis == nil {
		resp.Checks["redis"] = &readinessCheck{Status: "disabled"}
	} else {
		check := probe(ctx, h.redis.HealthCheck)
		if check.Status != "ok" {
			check.Status = "degraded"
		}
		resp.Checks["redis"] = check
	}

	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func probe(ctx context.Context, fn func(context.Context) error) *readinessCheck {
	start := time.Now()
	err := fn(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}
