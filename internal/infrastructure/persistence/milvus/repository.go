package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domain "cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
)

// ServiceVectorRepo 服务向量索引的 Milvus 实现
type ServiceVectorRepo struct {
	client    *Client
	dimension int
}

// NewServiceVectorRepo 创建服务向量索引
func NewServiceVectorRepo(client *Client, dimension int) *ServiceVectorRepo {
	return &ServiceVectorRepo{
		client:    client,
		dimension: dimension,
	}
}

var _ repository.ServiceVectorIndex = (*ServiceVectorRepo)(nil)

// EnsureCollection 确保服务向量集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *ServiceVectorRepo) EnsureCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionServiceEmbeddings)
	if err != nil {
		return err
	}
	if !exists {
		schema := ServiceEmbeddingsSchema(r.dimension)
		schema.CollectionName = r.client.CollectionName(schema.CollectionName)

		if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		if err := r.createIndex(ctx); err != nil {
			return err
		}
	}

	return r.client.LoadCollection(ctx, CollectionServiceEmbeddings)
}

// createIndex 为向量字段创建 HNSW 索引
func (r *ServiceVectorRepo) createIndex(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", CollectionServiceEmbeddings)))
	defer span.End()

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	collName := r.client.CollectionName(CollectionServiceEmbeddings)
	if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// SearchServices 近邻检索，按余弦相似度降序返回至多 topK 个服务
func (r *ServiceVectorRepo) SearchServices(ctx context.Context, vector []float32, topK int) ([]domain.ResolvedService, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchServices",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	collName := r.client.CollectionName(CollectionServiceEmbeddings)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		[]string{"service_name"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search services: %w", err)
	}

	var resolved []domain.ResolvedService
	for _, result := range results {
		nameCol, _ := result.Fields.GetColumn("service_name").(*entity.ColumnVarChar)
		for i := 0; i < result.ResultCount; i++ {
			rs := domain.ResolvedService{
				// COSINE 度量下 Milvus 直接返回相似度，越大越相近
				Score: float64(result.Scores[i]),
			}
			if nameCol != nil {
				rs.Name = nameCol.Data()[i]
			}
			if strings.TrimSpace(rs.Name) == "" {
				continue
			}
			resolved = append(resolved, rs)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(resolved)))
	return resolved, nil
}

// UpsertServiceEmbeddings 写入或覆盖服务向量。
// Milvus 主键不支持原地更新，先按主键删除再插入。
func (r *ServiceVectorRepo) UpsertServiceEmbeddings(ctx context.Context, embeddings []repository.ServiceEmbedding) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	if len(embeddings) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.UpsertServiceEmbeddings",
		trace.WithAttributes(attribute.Int("count", len(embeddings))))
	defer span.End()

	collName := r.client.CollectionName(CollectionServiceEmbeddings)

	names := make([]string, 0, len(embeddings))
	vectors := make([][]float32, 0, len(embeddings))
	for _, e := range embeddings {
		if strings.TrimSpace(e.ServiceName) == "" || len(e.Vector) == 0 {
			continue
		}
		names = append(names, e.ServiceName)
		vectors = append(vectors, e.Vector)
	}
	if len(names) == 0 {
		return nil
	}

	filter := "service_name in [" + quoteJoin(names) + "]"
	if err := r.client.milvus.Delete(ctx, collName, "", filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete stale embeddings: %w", err)
	}

	nameCol := entity.NewColumnVarChar("service_name", names)
	vectorCol := entity.NewColumnFloatVector("vector", r.dimension, vectors)

	if _, err := r.client.milvus.Insert(ctx, collName, "", nameCol, vectorCol); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert embeddings: %w", err)
	}
	return nil
}

func quoteJoin(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, `"`+strings.ReplaceAll(v, `"`, ``)+`"`)
	}
	return strings.Join(quoted, ", ")
}
