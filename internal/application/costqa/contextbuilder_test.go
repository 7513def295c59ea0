package costqa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cloudcost-kg-api/internal/domain/entity"
)

func TestBuildContext(t *testing.T) {
	analysis := &entity.CostAnalysis{
		Totals: []entity.ServiceTotal{
			{Service: "Cloud SQL", Total: 40},
			{Service: "Cloud Storage", Total: 13.25},
		},
		Rows: []entity.CostRow{
			{Service: "Cloud SQL", Resource: "db-1", Cost: cost(40)},
			{Service: "Cloud Storage", Resource: "bucket-a", Cost: cost(10.75)},
			{Service: "Cloud Storage", Resource: "bucket-b", Cost: nil},
		},
	}

	got := BuildContext(analysis, entity.IntentGeneral, 20)

	want := "Service: Cloud SQL, TotalCost: 40\n" +
		"Service: Cloud Storage, TotalCost: 13.25\n" +
		"\nProvenance:\n" +
		"Service: Cloud SQL, Resource: db-1, Cost: 40\n" +
		"Service: Cloud Storage, Resource: bucket-a, Cost: 10.75\n" +
		"Service: Cloud Storage, Resource: bucket-b, Cost: \n"
	assert.Equal(t, want, got)

	// 纯函数：重复调用字节一致
	assert.Equal(t, got, BuildContext(analysis, entity.IntentGeneral, 20))
}

func TestBuildContextProvenanceCap(t *testing.T) {
	rows := make([]entity.CostRow, 30)
	for i := range rows {
		rows[i] = entity.CostRow{Service: "svc", Resource: "res", Cost: cost(1)}
	}
	analysis := &entity.CostAnalysis{Rows: rows}

	got := BuildContext(analysis, entity.IntentGeneral, 20)
	assert.Equal(t, 20, strings.Count(got, "Resource:"))

	// cap <= 0 表示不截断
	got = BuildContext(analysis, entity.IntentGeneral, 0)
	assert.Equal(t, 30, strings.Count(got, "Resource:"))
}

func TestBuildContextCostTypeAdvisory(t *testing.T) {
	analysis := &entity.CostAnalysis{}

	got := BuildContext(analysis, entity.IntentCostType, 20)
	assert.Contains(t, got, "Recommended Cost Type: EffectiveCost")

	got = BuildContext(analysis, entity.IntentGeneral, 20)
	assert.NotContains(t, got, "Recommended Cost Type")
}

func TestBuildContextEmpty(t *testing.T) {
	// 空分析仍输出溯源段头，结构保持稳定
	got := BuildContext(&entity.CostAnalysis{}, entity.IntentGeneral, 20)
	assert.Equal(t, "\nProvenance:\n", got)

	got = BuildContext(nil, entity.IntentGeneral, 20)
	assert.Equal(t, "\nProvenance:\n", got)
}
