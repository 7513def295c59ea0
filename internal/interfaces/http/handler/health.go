package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloudcost-kg-api/internal/infrastructure/persistence/milvus"
	"cloudcost-kg-api/internal/infrastructure/persistence/neo4j"
	"cloudcost-kg-api/internal/infrastructure/persistence/postgres"
	"cloudcost-kg-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	graph  *neo4j.Client
	pg     *postgres.Client
	redis  *redis.Client
	milvus *milvus.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(graph *neo4j.Client, pg *postgres.Client, redisClient *redis.Client, milvusClient *milvus.Client) *HealthHandler {
	return &HealthHandler{
		graph:  graph,
		pg:     pg,
		redis:  redisClient,
		milvus: milvusClient,
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
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口。
// Neo4j 为必需依赖；Milvus/Redis/Postgres 故障时服务降级但仍可接流量。
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"neo4j": {Status: "unknown"},
	}
	ready := true

	// Neo4j（必需）
	if h == nil || h.graph == nil {
		checks["neo4j"].Status = "missing"
		checks["neo4j"].Error = "neo4j client not configured"
		ready = false
	} else {
		start := time.Now()
		err := h.graph.HealthCheck(ctx)
		checks["neo4j"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["neo4j"].Status = "error"
			checks["neo4j"].Error = err.Error()
			ready = false
		} else {
			checks["neo4j"].Status = "ok"
		}
	}

	// Milvus（降级：语义解析不可用时按未命中处理）
	if h != nil && h.milvus != nil {
		checks["milvus"] = probe(ctx, h.milvus.HealthCheck)
	}

	// Redis（降级：缓存与限流失效）
	if h != nil && h.redis != nil {
		checks["redis"] = probe(ctx, h.redis.HealthCheck)
	}

	// Postgres（降级：审计记录丢失）
	if h != nil && h.pg != nil {
		checks["postgres"] = probe(ctx, h.pg.HealthCheck)
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

func probe(ctx context.Context, check func(context.Context) error) *readinessCheck {
	rc := &readinessCheck{}
	start := time.Now()
	err := check(ctx)
	rc.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		rc.Status = "degraded"
		rc.Error = err.Error()
	} else {
		rc.Status = "ok"
	}
	return rc
}
