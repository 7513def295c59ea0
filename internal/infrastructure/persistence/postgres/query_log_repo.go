package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
)

// QueryLogRepo 问答审计记录仓储实现
type QueryLogRepo struct {
	client *Client
}

// NewQueryLogRepo 创建问答审计记录仓储
func NewQueryLogRepo(client *Client) *QueryLogRepo {
	return &QueryLogRepo{client: client}
}

var _ repository.QueryLogRepository = (*QueryLogRepo)(nil)

// AutoMigrate 建表
func (r *QueryLogRepo) AutoMigrate() error {
	return r.client.db.AutoMigrate(&entity.QueryLog{})
}

// Create 写入一条审计记录
func (r *QueryLogRepo) Create(ctx context.Context, log *entity.QueryLog) error {
	ctx, span := tracer.Start(ctx, "postgres.QueryLogRepo.Create")
	defer span.End()

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	if err := r.client.db.WithContext(ctx).Create(log).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create query log: %w", err)
	}
	return nil
}

// ListRecent 按时间倒序返回最近的记录
func (r *QueryLogRepo) ListRecent(ctx context.Context, limit int) ([]*entity.QueryLog, error) {
	ctx, span := tracer.Start(ctx, "postgres.QueryLogRepo.ListRecent")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	var logs []*entity.QueryLog
	err := r.client.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}
	return logs, nil
}
