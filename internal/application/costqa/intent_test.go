package costqa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cloudcost-kg-api/internal/domain/entity"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     entity.Intent
	}{
		{
			name:     "比较类问题",
			question: "Compare storage and compute costs",
			want:     entity.IntentComparison,
		},
		{
			name:     "排名类问题",
			question: "What are the top 5 services by cost?",
			want:     entity.IntentRanking,
		},
		{
			name:     "承诺折扣分析",
			question: "How is our commitment doing this quarter?",
			want:     entity.IntentCommitmentAnalysis,
		},
		{
			name:     "利用率同样归为承诺折扣分析",
			question: "Show me the utilization of reserved instances",
			want:     entity.IntentCommitmentAnalysis,
		},
		{
			name:     "成本类型问题",
			question: "Which cost type should I use for reporting?",
			want:     entity.IntentCostType,
		},
		{
			name:     "无规则命中回落到 general",
			question: "How much did we spend on storage?",
			want:     entity.IntentGeneral,
		},
		{
			name:     "大小写不敏感",
			question: "COMPARE EC2 AND S3",
			want:     entity.IntentComparison,
		},
		{
			name:     "规则按序优先，compare 先于 top",
			question: "Compare the top services",
			want:     entity.IntentComparison,
		},
		{
			name:     "空问题",
			question: "",
			want:     entity.IntentGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.question))
		})
	}
}
