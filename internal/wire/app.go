// Package wire 提供应用组装
package wire

import (
	"context"
	"fmt"

	"cloudcost-kg-api/internal/application/costqa"
	"cloudcost-kg-api/internal/config"
	"cloudcost-kg-api/internal/domain/repository"
	"cloudcost-kg-api/internal/infrastructure/embedding"
	"cloudcost-kg-api/internal/infrastructure/llm"
	"cloudcost-kg-api/internal/infrastructure/persistence/milvus"
	"cloudcost-kg-api/internal/infrastructure/persistence/neo4j"
	"cloudcost-kg-api/internal/infrastructure/persistence/postgres"
	"cloudcost-kg-api/internal/infrastructure/persistence/redis"
	"cloudcost-kg-api/internal/interfaces/http/handler"
	"cloudcost-kg-api/internal/interfaces/http/router"
	"cloudcost-kg-api/pkg/logger"
)

// App 组装完成的应用
type App struct {
	Config *config.Config
	Engine *costqa.Engine
	Graph  repository.CostGraphRepository
	Router *router.Router

	graphClient  *neo4j.Client
	milvusClient *milvus.Client
	pgClient     *postgres.Client
	redisClient  *redis.Client
}

// InitializeApp 组装问答服务。
// Neo4j 为硬依赖；Milvus/Postgres/Redis 连接失败时服务降级启动，
// 对应能力（语义解析/审计/缓存限流）各自缺位。
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	app := &App{Config: cfg}

	graphClient, err := neo4j.NewClient(ctx, &cfg.Graph.Neo4j)
	if err != nil {
		return nil, nil, fmt.Errorf("init neo4j: %w", err)
	}
	app.graphClient = graphClient
	app.Graph = neo4j.NewCostGraphRepo(graphClient)

	resolver := buildResolver(ctx, cfg, app)
	retriever := costqa.NewRetriever(app.Graph, cfg.Pipeline.RankingLimit)

	factory := llm.NewEinoFactory(&cfg.LLM)
	answerer := costqa.NewAnswerer(factory, cfg.LLM.DefaultProvider, providerModel(cfg))

	var answerCache costqa.AnswerCache
	var statsCache handler.StatsCache
	var limiter *redis.RateLimiter
	if redisClient, err := redis.NewClient(&cfg.Cache.Redis); err != nil {
		logger.Warn(ctx, "redis unavailable, cache and rate limit disabled", "error", err.Error())
	} else {
		app.redisClient = redisClient
		cache := redis.NewCache(redisClient)
		answerCache = cache
		statsCache = cache
		limiter = redis.NewRateLimiter(redisClient)
	}

	var queryLog repository.QueryLogRepository
	if pgClient, err := postgres.NewClient(&cfg.Database.Postgres); err != nil {
		logger.Warn(ctx, "postgres unavailable, query audit disabled", "error", err.Error())
	} else {
		app.pgClient = pgClient
		repo := postgres.NewQueryLogRepo(pgClient)
		if err := repo.AutoMigrate(); err != nil {
			logger.Warn(ctx, "query log migration failed", "error", err.Error())
		}
		queryLog = repo
	}

	app.Engine = costqa.NewEngine(resolver, retriever, answerer, answerCache, queryLog, costqa.EngineConfig{
		TopK:            cfg.Pipeline.TopK,
		ProvenanceCap:   cfg.Pipeline.ProvenanceCap,
		EmbedTimeout:    cfg.Pipeline.EmbedTimeout,
		GraphTimeout:    cfg.Pipeline.GraphTimeout,
		GenerateTimeout: cfg.Pipeline.GenerateTimeout,
		AnswerTTL:       cfg.Cache.AnswerTTL,
	})

	handlers := router.Handlers{
		Health: handler.NewHealthHandler(app.graphClient, app.pgClient, app.redisClient, app.milvusClient),
		Query:  handler.NewQueryHandler(app.Engine, app.Graph, statsCache),
	}

	// 显式传 nil 接口，避免 typed-nil 穿透限流开关判断
	if limiter != nil {
		app.Router = router.New(cfg, handlers, limiter)
	} else {
		app.Router = router.New(cfg, handlers, nil)
	}

	cleanup := func() {
		if app.redisClient != nil {
			_ = app.redisClient.Close()
		}
		if app.pgClient != nil {
			_ = app.pgClient.Close()
		}
		if app.milvusClient != nil {
			_ = app.milvusClient.Close()
		}
		_ = app.graphClient.Close(context.Background())
	}

	return app, cleanup, nil
}

// buildResolver 组装语义实体解析器。
// Embedder 或 Milvus 不可用时返回空依赖的解析器，编排器按未命中降级。
func buildResolver(ctx context.Context, cfg *config.Config, app *App) *costqa.Resolver {
	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedder unavailable, semantic resolution disabled", "error", err.Error())
		return costqa.NewResolver(nil, nil, cfg.Pipeline.TopK, cfg.Pipeline.MinSimilarity)
	}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus unavailable, semantic resolution disabled", "error", err.Error())
		return costqa.NewResolver(nil, nil, cfg.Pipeline.TopK, cfg.Pipeline.MinSimilarity)
	}
	app.milvusClient = milvusClient

	index := milvus.NewServiceVectorRepo(milvusClient, cfg.Embedding.Dimension)
	if err := index.EnsureCollection(ctx); err != nil {
		logger.Warn(ctx, "failed to ensure vector collection", "error", err.Error())
	}

	return costqa.NewResolver(embedder, index, cfg.Pipeline.TopK, cfg.Pipeline.MinSimilarity)
}

// providerModel 返回默认提供商配置的模型名，用于指标标签
func providerModel(cfg *config.Config) string {
	if p, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; ok {
		return p.Model
	}
	return ""
}
