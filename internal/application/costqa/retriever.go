package costqa

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
)

const defaultRankingLimit = 5

// Retriever 图检索与聚合器：按关键字检索成本行并按服务汇总。
type Retriever struct {
	graph        repository.CostGraphRepository
	rankingLimit int
}

// NewRetriever 创建图检索与聚合器。
func NewRetriever(graph repository.CostGraphRepository, rankingLimit int) *Retriever {
	if rankingLimit <= 0 {
		rankingLimit = defaultRankingLimit
	}
	return &Retriever{
		graph:        graph,
		rankingLimit: rankingLimit,
	}
}

// Retrieve 检索匹配 keyword 的成本行并按服务汇总。
// 汇总始终按总成本降序；ranking 意图下截断到前 rankingLimit 个服务。
// 图库故障返回 ErrRetrieval，不会以空结果掩盖。
func (r *Retriever) Retrieve(ctx context.Context, keyword string, intent entity.Intent, window entity.TimeWindow) (*entity.CostAnalysis, error) {
	if r == nil || r.graph == nil {
		return nil, fmt.Errorf("%w: graph repository not configured", ErrRetrieval)
	}

	rows, err := r.graph.FetchCostRows(ctx, repository.CostRowQuery{
		Keyword:                  strings.ToLower(strings.TrimSpace(keyword)),
		Window:                   window,
		ExcludedChargeCategories: entity.ExcludedChargeCategories(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	totals := Aggregate(rows)
	if intent == entity.IntentRanking && len(totals) > r.rankingLimit {
		totals = totals[:r.rankingLimit]
	}

	return &entity.CostAnalysis{
		Totals: totals,
		Rows:   rows,
	}, nil
}

// Aggregate 按服务名汇总 billedCost。
// 纯函数：缺失成本按 0 计；结果按总成本降序，同额时按服务名升序保证确定性。
func Aggregate(rows []entity.CostRow) []entity.ServiceTotal {
	sums := make(map[string]float64, len(rows))
	for _, row := range rows {
		cost := 0.0
		if row.Cost != nil {
			cost = *row.Cost
		}
		sums[row.Service] += cost
	}

	totals := make([]entity.ServiceTotal, 0, len(sums))
	for service, total := range sums {
		totals = append(totals, entity.ServiceTotal{Service: service, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Service < totals[j].Service
	})
	return totals
}
