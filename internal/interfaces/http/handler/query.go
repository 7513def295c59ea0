// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cloudcost-kg-api/internal/application/costqa"
	"cloudcost-kg-api/internal/domain/repository"
	"cloudcost-kg-api/internal/interfaces/http/dto"
	"cloudcost-kg-api/pkg/logger"
)

// statsCacheTTL 图谱统计缓存时长
const statsCacheTTL = time.Minute

// StatsCache 统计查询的 Read-Through 缓存依赖，允许为 nil
type StatsCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// QueryHandler 问答处理器
type QueryHandler struct {
	engine     *costqa.Engine
	graph      repository.CostGraphRepository
	statsCache StatsCache
}

// NewQueryHandler 创建问答处理器
func NewQueryHandler(engine *costqa.Engine, graph repository.CostGraphRepository, statsCache StatsCache) *QueryHandler {
	return &QueryHandler{
		engine:     engine,
		graph:      graph,
		statsCache: statsCache,
	}
}

// Ask 问答接口
// @Summary 自然语言成本问答
// @Tags Query
// @Accept json
// @Produce json
// @Param request body dto.QueryRequest true "问题"
// @Success 200 {object} dto.Response[dto.QueryResponse]
// @Router /v1/query [post]
func (h *QueryHandler) Ask(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	out, err := h.engine.Ask(c.Request.Context(), costqa.AskInput{
		Question: req.Question,
		TopK:     req.TopK,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "query failed", err, "question_len", len(req.Question))
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.QueryResponse{
		Answer:     out.Answer,
		Concepts:   out.Concepts,
		Paths:      out.Paths,
		Confidence: out.Confidence,
		Intent:     string(out.Intent),
	})
}

// GetConcept 服务概念详情接口
// @Summary 查询服务及其关联资源
// @Tags Query
// @Produce json
// @Param name path string true "服务名"
// @Success 200 {object} dto.Response[dto.ConceptResponse]
// @Router /v1/concepts/{name} [get]
func (h *QueryHandler) GetConcept(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		dto.BadRequest(c, "concept name is required")
		return
	}

	detail, err := h.graph.GetServiceDetail(c.Request.Context(), name)
	if err != nil {
		logger.Error(c.Request.Context(), "concept lookup failed", err, "concept", name)
		dto.ServiceUnavailable(c, "graph store unavailable")
		return
	}
	if detail == nil {
		dto.NotFound(c, "service not found: "+name)
		return
	}

	dto.Success(c, dto.ConceptResponse{
		Service:   detail.Service,
		Resources: detail.Resources,
	})
}

// Stats 图谱统计接口
// @Summary 查询图谱节点与关系数量
// @Tags Query
// @Produce json
// @Success 200 {object} dto.Response[dto.StatsResponse]
// @Router /v1/stats [get]
func (h *QueryHandler) Stats(c *gin.Context) {
	stats, err := h.loadStats(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "stats query failed", err)
		dto.ServiceUnavailable(c, "graph store unavailable")
		return
	}

	dto.Success(c, dto.StatsResponse{
		NodeCount:         stats.NodeCount,
		RelationshipCount: stats.RelationshipCount,
	})
}

// loadStats 全表 count 开销较大，结果经缓存层短暂缓存
func (h *QueryHandler) loadStats(ctx context.Context) (*repository.GraphStats, error) {
	if h.statsCache == nil {
		return h.graph.Stats(ctx)
	}

	raw, err := h.statsCache.GetOrLoadSafe(ctx, "costqa:stats", statsCacheTTL, func() (interface{}, error) {
		return h.graph.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}

	var stats repository.GraphStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
