package repository

import (
	"context"

	"cloudcost-kg-api/internal/domain/entity"
)

// QueryLogRepository 问答审计记录仓储接口
type QueryLogRepository interface {
	// Create 写入一条审计记录
	Create(ctx context.Context, log *entity.QueryLog) error

	// ListRecent 按时间倒序返回最近的记录
	ListRecent(ctx context.Context, limit int) ([]*entity.QueryLog, error)
}
