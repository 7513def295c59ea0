package entity

import "time"

// Intent 问题分析意图
type Intent string

const (
	IntentComparison         Intent = "comparison"
	IntentRanking            Intent = "ranking"
	IntentCommitmentAnalysis Intent = "commitment_analysis"
	IntentCostType           Intent = "cost_type"
	IntentGeneral            Intent = "general"
)

// TimeWindow 可选的账期过滤范围，指针为 nil 表示该侧无界
type TimeWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsZero 判断是否未指定任何时间边界
func (w TimeWindow) IsZero() bool {
	return w.Start == nil && w.End == nil
}

// ResolvedService 语义检索命中的服务及其相似度
type ResolvedService struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
