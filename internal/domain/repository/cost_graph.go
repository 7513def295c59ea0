// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"cloudcost-kg-api/internal/domain/entity"
)

// CostRowQuery 成本行检索条件
type CostRowQuery struct {
	// Keyword 服务名的大小写不敏感子串
	Keyword string
	// Window 可选账期范围
	Window entity.TimeWindow
	// ExcludedChargeCategories 需要排除的费用类别；为空表示不排除
	ExcludedChargeCategories []string
}

// ServiceDetail 服务及其关联资源
type ServiceDetail struct {
	Service   string   `json:"service"`
	Resources []string `json:"resources"`
}

// GraphStats 图库规模统计
type GraphStats struct {
	NodeCount         int64 `json:"node_count"`
	RelationshipCount int64 `json:"relationship_count"`
}

// FocusRecord FOCUS 账单行，装载任务写入图库的单位
type FocusRecord struct {
	CostID          string
	ServiceName     string
	ServiceCategory string
	ResourceID      string
	ResourceName    string
	ResourceType    string
	BilledCost      *float64
	EffectiveCost   *float64
	Currency        string
	ChargeCategory  *string
	Vendor          entity.Vendor
	PeriodStart     string
	PeriodEnd       string
}

// CostGraphRepository 成本图谱仓储接口
type CostGraphRepository interface {
	// FetchCostRows 检索匹配的成本行，保持图库返回顺序
	FetchCostRows(ctx context.Context, q CostRowQuery) ([]entity.CostRow, error)

	// GetServiceDetail 获取服务及其关联资源，未找到返回 nil
	GetServiceDetail(ctx context.Context, name string) (*ServiceDetail, error)

	// Stats 获取图库节点与关系数量
	Stats(ctx context.Context) (*GraphStats, error)

	// ListServiceNames 列出全部服务名（索引构建任务使用）
	ListServiceNames(ctx context.Context) ([]string, error)

	// UpsertFocusRecord 写入一行 FOCUS 账单（装载任务使用）
	UpsertFocusRecord(ctx context.Context, rec *FocusRecord) error
}
