// Package entity 定义领域实体
package entity

// Vendor 账单来源云厂商
type Vendor string

const (
	VendorAWS   Vendor = "AWS"
	VendorAzure Vendor = "Azure"
	VendorGCP   Vendor = "GCP"
)

// 承诺型费用类别，用量成本视图中需要排除
const (
	ChargeCategoryCommitmentPurchase = "CommitmentPurchase"
	ChargeCategoryCommitmentFee      = "CommitmentFee"
)

// ExcludedChargeCategories 返回用量成本视图排除的费用类别
func ExcludedChargeCategories() []string {
	return []string{ChargeCategoryCommitmentPurchase, ChargeCategoryCommitmentFee}
}

// Service 云服务节点，serviceName 为唯一键，解析时大小写不敏感
type Service struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Resource 资源节点，通过 USES_SERVICE 关联所消费的服务
type Resource struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// CostRecord 成本记录节点，通过 INCURRED_BY 关联产生费用的资源
type CostRecord struct {
	ID             string   `json:"id"`
	BilledCost     *float64 `json:"billed_cost"`
	EffectiveCost  *float64 `json:"effective_cost"`
	Currency       string   `json:"currency,omitempty"`
	ChargeCategory *string  `json:"charge_category,omitempty"`
	Vendor         Vendor   `json:"vendor"`
}

// CostRow 检索返回的原始行 (service, resource, cost)
// Cost 为 nil 表示图中 billedCost 缺失，汇总时按 0 计，溯源中保留空值。
type CostRow struct {
	Service  string   `json:"service"`
	Resource string   `json:"resource"`
	Cost     *float64 `json:"cost"`
}

// ServiceTotal 按服务汇总的成本
type ServiceTotal struct {
	Service string  `json:"service"`
	Total   float64 `json:"total"`
}

// CostAnalysis 图检索与聚合结果
// Totals 按总成本降序排列；Rows 保持图库返回顺序，供溯源使用。
type CostAnalysis struct {
	Totals []ServiceTotal `json:"totals"`
	Rows   []CostRow      `json:"rows"`
}
