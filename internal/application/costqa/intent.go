package costqa

import (
	"strings"

	"cloudcost-kg-api/internal/domain/entity"
)

// intentRule 单条意图规则：任一子串命中即返回对应意图。
type intentRule struct {
	substrings []string
	intent     entity.Intent
}

// 规则按优先级排列，首个命中生效；追加新规则只需扩展此列表。
var intentRules = []intentRule{
	{substrings: []string{"compare"}, intent: entity.IntentComparison},
	{substrings: []string{"top"}, intent: entity.IntentRanking},
	{substrings: []string{"commitment", "utilization"}, intent: entity.IntentCommitmentAnalysis},
	{substrings: []string{"cost type"}, intent: entity.IntentCostType},
}

// ClassifyIntent 将问题文本映射到分析意图。
// 纯函数，总是返回一个意图；无规则命中时返回 general。
func ClassifyIntent(question string) entity.Intent {
	q := strings.ToLower(question)
	for _, rule := range intentRules {
		for _, sub := range rule.substrings {
			if strings.Contains(q, sub) {
				return rule.intent
			}
		}
	}
	return entity.IntentGeneral
}
