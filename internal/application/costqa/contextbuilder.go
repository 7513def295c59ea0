package costqa

import (
	"fmt"
	"strconv"
	"strings"

	"cloudcost-kg-api/internal/domain/entity"
)

// costTypeAdvisory cost_type 意图附加的建议行：
// EffectiveCost 反映折扣后的实际支出，是 FinOps 下成本类型比较的首选指标。
const costTypeAdvisory = "Recommended Cost Type: EffectiveCost"

// BuildContext 将聚合结果与原始行序列化为结构化上下文文本。
// 纯函数：相同输入总是产生字节一致的输出（Totals 已由检索端确定排序）。
func BuildContext(analysis *entity.CostAnalysis, intent entity.Intent, provenanceCap int) string {
	var b strings.Builder

	if analysis != nil {
		for _, t := range analysis.Totals {
			fmt.Fprintf(&b, "Service: %s, TotalCost: %s\n", t.Service, formatCost(t.Total))
		}
	}

	b.WriteString("\nProvenance:\n")

	if analysis != nil {
		rows := analysis.Rows
		if provenanceCap > 0 && len(rows) > provenanceCap {
			rows = rows[:provenanceCap]
		}
		for _, row := range rows {
			fmt.Fprintf(&b, "Service: %s, Resource: %s, Cost: %s\n",
				row.Service, row.Resource, formatNullableCost(row.Cost))
		}
	}

	if intent == entity.IntentCostType {
		b.WriteString("\n" + costTypeAdvisory + "\n")
	}

	return b.String()
}

// formatCost 以最短无损十进制渲染成本值
func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatNullableCost 缺失成本在溯源行中渲染为空，不伪装成 0
func formatNullableCost(v *float64) string {
	if v == nil {
		return ""
	}
	return formatCost(*v)
}
