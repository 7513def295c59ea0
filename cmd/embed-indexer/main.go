// Package main 服务名向量索引构建任务
//
// 从图数据库读取全部服务名，批量生成向量后写入 Milvus，
// 供语义实体解析使用。图谱装载或服务目录变更后运行一次。
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cloudcost-kg-api/internal/config"
	"cloudcost-kg-api/internal/domain/repository"
	"cloudcost-kg-api/internal/infrastructure/embedding"
	"cloudcost-kg-api/internal/infrastructure/persistence/milvus"
	"cloudcost-kg-api/internal/infrastructure/persistence/neo4j"
	"cloudcost-kg-api/internal/infrastructure/persistence/redis"
	"cloudcost-kg-api/pkg/logger"
)

const (
	defaultBatchSize = 64
	// maxConcurrentBatches 并发批次上限，避免打满嵌入服务
	maxConcurrentBatches = 4
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error(ctx, "index build failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	graphClient, err := neo4j.NewClient(ctx, &cfg.Graph.Neo4j)
	if err != nil {
		return fmt.Errorf("connect neo4j: %w", err)
	}
	defer graphClient.Close(ctx)
	graph := neo4j.NewCostGraphRepo(graphClient)

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return fmt.Errorf("connect milvus: %w", err)
	}
	defer milvusClient.Close()

	index := milvus.NewServiceVectorRepo(milvusClient, cfg.Embedding.Dimension)
	if err := index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	names, err := graph.ListServiceNames(ctx)
	if err != nil {
		return fmt.Errorf("list service names: %w", err)
	}
	if len(names) == 0 {
		logger.Warn(ctx, "no services found in graph, nothing to index")
		return nil
	}
	logger.Info(ctx, "indexing service names", "count", len(names))

	batchSize := cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var (
		mu      sync.Mutex
		indexed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for start := 0; start < len(names); start += batchSize {
		batch := names[start:min(start+batchSize, len(names))]
		g.Go(func() error {
			vectors, err := embedder.EmbedStrings(gctx, batch)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed batch: got %d vectors for %d names", len(vectors), len(batch))
			}

			embeddings := make([]repository.ServiceEmbedding, 0, len(batch))
			for i, name := range batch {
				vec := make([]float32, len(vectors[i]))
				for j, v := range vectors[i] {
					vec[j] = float32(v)
				}
				embeddings = append(embeddings, repository.ServiceEmbedding{
					ServiceName: name,
					Vector:      vec,
				})
			}
			if err := index.UpsertServiceEmbeddings(gctx, embeddings); err != nil {
				return fmt.Errorf("upsert batch: %w", err)
			}

			mu.Lock()
			indexed += len(batch)
			logger.Info(gctx, "batch indexed", "done", indexed, "total", len(names))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// 服务向量变更后旧答案可能失真，清空问答缓存
	if redisClient, err := redis.NewClient(&cfg.Cache.Redis); err == nil {
		defer redisClient.Close()
		if err := redis.NewCache(redisClient).InvalidateAnswers(ctx); err != nil {
			logger.Warn(ctx, "failed to invalidate answer cache", "error", err.Error())
		}
	}

	logger.Info(ctx, "index build complete", "services", indexed)
	return nil
}
