package repository

import (
	"context"

	"cloudcost-kg-api/internal/domain/entity"
)

// ServiceEmbedding 服务名及其向量，索引构建任务的写入单位
type ServiceEmbedding struct {
	ServiceName string
	Vector      []float32
}

// ServiceVectorIndex 服务向量索引接口
type ServiceVectorIndex interface {
	// SearchServices 近邻检索，按相似度降序返回至多 topK 个服务
	SearchServices(ctx context.Context, vector []float32, topK int) ([]entity.ResolvedService, error)

	// UpsertServiceEmbeddings 写入或覆盖服务向量
	UpsertServiceEmbeddings(ctx context.Context, embeddings []ServiceEmbedding) error
}
