package costqa

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
)

type fakeCostGraph struct {
	rows   []entity.CostRow
	err    error
	gotQ   repository.CostRowQuery
	called int
}

func (f *fakeCostGraph) FetchCostRows(_ context.Context, q repository.CostRowQuery) ([]entity.CostRow, error) {
	f.gotQ = q
	f.called++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeCostGraph) GetServiceDetail(_ context.Context, _ string) (*repository.ServiceDetail, error) {
	return nil, nil
}

func (f *fakeCostGraph) Stats(_ context.Context) (*repository.GraphStats, error) {
	return &repository.GraphStats{}, nil
}

func (f *fakeCostGraph) ListServiceNames(_ context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeCostGraph) UpsertFocusRecord(_ context.Context, _ *repository.FocusRecord) error {
	return nil
}

func cost(v float64) *float64 { return &v }

func TestRetrieverRetrieve(t *testing.T) {
	graph := &fakeCostGraph{rows: []entity.CostRow{
		{Service: "Cloud Storage", Resource: "bucket-a", Cost: cost(10.5)},
		{Service: "Cloud SQL", Resource: "db-1", Cost: cost(40)},
		{Service: "Cloud Storage", Resource: "bucket-b", Cost: cost(2.5)},
	}}

	r := NewRetriever(graph, 5)
	analysis, err := r.Retrieve(context.Background(), "Cloud", entity.IntentGeneral, entity.TimeWindow{})
	require.NoError(t, err)

	// 关键字小写化后送入图库，排除的费用类别随查询下发
	assert.Equal(t, "cloud", graph.gotQ.Keyword)
	assert.Equal(t, entity.ExcludedChargeCategories(), graph.gotQ.ExcludedChargeCategories)

	// 按服务汇总并按总成本降序
	require.Len(t, analysis.Totals, 2)
	assert.Equal(t, entity.ServiceTotal{Service: "Cloud SQL", Total: 40}, analysis.Totals[0])
	assert.Equal(t, entity.ServiceTotal{Service: "Cloud Storage", Total: 13}, analysis.Totals[1])

	// 原始行原样保留供溯源
	assert.Len(t, analysis.Rows, 3)
}

func TestRetrieverRankingLimit(t *testing.T) {
	rows := make([]entity.CostRow, 0, 8)
	for i := 0; i < 8; i++ {
		rows = append(rows, entity.CostRow{
			Service: fmt.Sprintf("service-%d", i),
			Cost:    cost(float64(i + 1)),
		})
	}
	graph := &fakeCostGraph{rows: rows}
	r := NewRetriever(graph, 5)

	// ranking 意图截断到前 5 个服务
	analysis, err := r.Retrieve(context.Background(), "service", entity.IntentRanking, entity.TimeWindow{})
	require.NoError(t, err)
	assert.Len(t, analysis.Totals, 5)
	assert.Equal(t, "service-7", analysis.Totals[0].Service)

	// 其他意图不截断
	analysis, err = r.Retrieve(context.Background(), "service", entity.IntentGeneral, entity.TimeWindow{})
	require.NoError(t, err)
	assert.Len(t, analysis.Totals, 8)
}

func TestRetrieverGraphFailure(t *testing.T) {
	graph := &fakeCostGraph{err: fmt.Errorf("connection reset")}
	r := NewRetriever(graph, 5)

	_, err := r.Retrieve(context.Background(), "storage", entity.IntentGeneral, entity.TimeWindow{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		rows []entity.CostRow
		want []entity.ServiceTotal
	}{
		{
			name: "空输入",
			rows: nil,
			want: []entity.ServiceTotal{},
		},
		{
			name: "缺失成本按 0 计",
			rows: []entity.CostRow{
				{Service: "a", Cost: nil},
				{Service: "a", Cost: cost(3)},
			},
			want: []entity.ServiceTotal{{Service: "a", Total: 3}},
		},
		{
			name: "同额服务按名称升序保证确定性",
			rows: []entity.CostRow{
				{Service: "beta", Cost: cost(5)},
				{Service: "alpha", Cost: cost(5)},
			},
			want: []entity.ServiceTotal{
				{Service: "alpha", Total: 5},
				{Service: "beta", Total: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.rows))
		})
	}
}

func TestAggregateOrderInsensitive(t *testing.T) {
	// 聚合结果不依赖输入行顺序
	a := []entity.CostRow{
		{Service: "x", Cost: cost(1)},
		{Service: "y", Cost: cost(2)},
		{Service: "x", Cost: cost(3)},
	}
	b := []entity.CostRow{a[2], a[0], a[1]}
	assert.Equal(t, Aggregate(a), Aggregate(b))
}
