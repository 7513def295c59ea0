package neo4j

import (
	"context"
	"fmt"
	"strings"
	"time"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
	"cloudcost-kg-api/pkg/metrics"
)

// CostGraphRepo 成本图谱仓储 Neo4j 实现
type CostGraphRepo struct {
	client *Client
}

// NewCostGraphRepo 创建成本图谱仓储
func NewCostGraphRepo(client *Client) repository.CostGraphRepository {
	return &CostGraphRepo{client: client}
}

// fetchCostRowsCypher 沿 CostRecord -> Resource -> Service 路径检索成本行。
// Charge 与 BillingPeriod 为可选关联：无 Charge 的记录视为用量成本保留，
// 无 BillingPeriod 的记录仅在未指定账期范围时保留。
const fetchCostRowsCypher = `
MATCH (c:CostRecord)-[:INCURRED_BY]->(r:Resource)-[:USES_SERVICE]->(s:Service)
WHERE toLower(s.serviceName) CONTAINS $keyword
OPTIONAL MATCH (c)-[:HAS_CHARGE]->(ch:Charge)
OPTIONAL MATCH (c)-[:BILLED_IN]->(bp:BillingPeriod)
WITH s, r, c, ch, bp
WHERE (ch IS NULL OR NOT ch.chargeCategory IN $excluded)
  AND ($start IS NULL OR (bp IS NOT NULL AND bp.chargePeriodStart >= $start))
  AND ($end IS NULL OR (bp IS NOT NULL AND bp.chargePeriodEnd <= $end))
RETURN s.serviceName AS service, r.resourceName AS resource, c.billedCost AS cost
`

// FetchCostRows 检索匹配的成本行，保持图库返回顺序
func (repo *CostGraphRepo) FetchCostRows(ctx context.Context, q repository.CostRowQuery) ([]entity.CostRow, error) {
	if repo == nil || repo.client == nil {
		return nil, fmt.Errorf("neo4j client not configured")
	}
	ctx, span := tracer.Start(ctx, "neo4j.FetchCostRows",
		trace.WithAttributes(
			attribute.String("keyword", q.Keyword),
			attribute.Bool("time_filtered", !q.Window.IsZero()),
		))
	defer span.End()

	params := map[string]any{
		"keyword":  strings.ToLower(q.Keyword),
		"excluded": q.ExcludedChargeCategories,
		"start":    billingDate(q.Window.Start),
		"end":      billingDate(q.Window.End),
	}

	start := time.Now()
	rows, err := readTx(ctx, repo.client, func(tx neo4jdrv.ManagedTransaction) ([]entity.CostRow, error) {
		result, err := tx.Run(ctx, fetchCostRowsCypher, params)
		if err != nil {
			return nil, err
		}

		var rows []entity.CostRow
		for result.Next(ctx) {
			rec := result.Record()
			rows = append(rows, entity.CostRow{
				Service:  stringValue(rec, "service"),
				Resource: stringValue(rec, "resource"),
				Cost:     floatValue(rec, "cost"),
			})
		}
		return rows, result.Err()
	})
	metrics.GraphQueryDuration.WithLabelValues("fetch_cost_rows").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch cost rows: %w", err)
	}

	span.SetAttributes(attribute.Int("row_count", len(rows)))
	return rows, nil
}

const serviceDetailCypher = `
MATCH (s:Service)
WHERE toLower(s.serviceName) = toLower($name)
OPTIONAL MATCH (r:Resource)-[:USES_SERVICE]->(s)
RETURN s.serviceName AS service, collect(DISTINCT r.resourceName) AS resources
`

// GetServiceDetail 获取服务及其关联资源，未找到返回 nil
func (repo *CostGraphRepo) GetServiceDetail(ctx context.Context, name string) (*repository.ServiceDetail, error) {
	if repo == nil || repo.client == nil {
		return nil, fmt.Errorf("neo4j client not configured")
	}
	ctx, span := tracer.Start(ctx, "neo4j.GetServiceDetail",
		trace.WithAttributes(attribute.String("service", name)))
	defer span.End()

	start := time.Now()
	detail, err := readTx(ctx, repo.client, func(tx neo4jdrv.ManagedTransaction) (*repository.ServiceDetail, error) {
		result, err := tx.Run(ctx, serviceDetailCypher, map[string]any{"name": name})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, result.Err()
		}

		rec := result.Record()
		detail := &repository.ServiceDetail{
			Service:   stringValue(rec, "service"),
			Resources: []string{},
		}
		if raw, ok := rec.Get("resources"); ok {
			if list, ok := raw.([]any); ok {
				for _, item := range list {
					if s, ok := item.(string); ok && s != "" {
						detail.Resources = append(detail.Resources, s)
					}
				}
			}
		}
		return detail, nil
	})
	metrics.GraphQueryDuration.WithLabelValues("service_detail").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get service detail: %w", err)
	}
	return detail, nil
}

// Stats 获取图库节点与关系数量
func (repo *CostGraphRepo) Stats(ctx context.Context) (*repository.GraphStats, error) {
	if repo == nil || repo.client == nil {
		return nil, fmt.Errorf("neo4j client not configured")
	}
	ctx, span := tracer.Start(ctx, "neo4j.Stats")
	defer span.End()

	start := time.Now()
	stats, err := readTx(ctx, repo.client, func(tx neo4jdrv.ManagedTransaction) (*repository.GraphStats, error) {
		stats := &repository.GraphStats{}

		result, err := tx.Run(ctx, `MATCH (n) RETURN count(n) AS cnt`, nil)
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			stats.NodeCount = intValue(result.Record(), "cnt")
		}
		if err := result.Err(); err != nil {
			return nil, err
		}

		result, err = tx.Run(ctx, `MATCH ()-[rel]->() RETURN count(rel) AS cnt`, nil)
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			stats.RelationshipCount = intValue(result.Record(), "cnt")
		}
		return stats, result.Err()
	})
	metrics.GraphQueryDuration.WithLabelValues("stats").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get graph stats: %w", err)
	}
	return stats, nil
}

// ListServiceNames 列出全部服务名
func (repo *CostGraphRepo) ListServiceNames(ctx context.Context) ([]string, error) {
	if repo == nil || repo.client == nil {
		return nil, fmt.Errorf("neo4j client not configured")
	}
	ctx, span := tracer.Start(ctx, "neo4j.ListServiceNames")
	defer span.End()

	start := time.Now()
	names, err := readTx(ctx, repo.client, func(tx neo4jdrv.ManagedTransaction) ([]string, error) {
		result, err := tx.Run(ctx, `MATCH (s:Service) RETURN s.serviceName AS name ORDER BY name`, nil)
		if err != nil {
			return nil, err
		}

		var names []string
		for result.Next(ctx) {
			if name := stringValue(result.Record(), "name"); name != "" {
				names = append(names, name)
			}
		}
		return names, result.Err()
	})
	metrics.GraphQueryDuration.WithLabelValues("list_service_names").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list service names: %w", err)
	}

	span.SetAttributes(attribute.Int("service_count", len(names)))
	return names, nil
}

// upsertFocusCypher 将一行 FOCUS 账单展开为图结构。
// Charge 与 BillingPeriod 通过 FOREACH 技巧按条件创建。
const upsertFocusCypher = `
MERGE (s:Service {serviceName: $serviceName})
  SET s.serviceCategory = $serviceCategory
MERGE (r:Resource {resourceId: $resourceId})
  SET r.resourceName = $resourceName, r.resourceType = $resourceType
MERGE (c:CostRecord {costId: $costId})
  SET c.billedCost = $billedCost,
      c.effectiveCost = $effectiveCost,
      c.currency = $currency,
      c.vendor = $vendor
MERGE (c)-[:INCURRED_BY]->(r)
MERGE (r)-[:USES_SERVICE]->(s)
FOREACH (cat IN CASE WHEN $chargeCategory IS NULL THEN [] ELSE [$chargeCategory] END |
  MERGE (ch:Charge {chargeCategory: cat})
  MERGE (c)-[:HAS_CHARGE]->(ch))
FOREACH (ps IN CASE WHEN $periodStart = '' THEN [] ELSE [$periodStart] END |
  MERGE (bp:BillingPeriod {chargePeriodStart: ps, chargePeriodEnd: $periodEnd})
  MERGE (c)-[:BILLED_IN]->(bp))
`

// UpsertFocusRecord 写入一行 FOCUS 账单
func (repo *CostGraphRepo) UpsertFocusRecord(ctx context.Context, rec *repository.FocusRecord) error {
	if repo == nil || repo.client == nil {
		return fmt.Errorf("neo4j client not configured")
	}
	if rec == nil || rec.ServiceName == "" || rec.ResourceID == "" || rec.CostID == "" {
		return fmt.Errorf("focus record missing service/resource/cost identifiers")
	}
	ctx, span := tracer.Start(ctx, "neo4j.UpsertFocusRecord",
		trace.WithAttributes(attribute.String("service", rec.ServiceName)))
	defer span.End()

	params := map[string]any{
		"serviceName":     rec.ServiceName,
		"serviceCategory": rec.ServiceCategory,
		"resourceId":      rec.ResourceID,
		"resourceName":    rec.ResourceName,
		"resourceType":    rec.ResourceType,
		"costId":          rec.CostID,
		"billedCost":      nullableFloat(rec.BilledCost),
		"effectiveCost":   nullableFloat(rec.EffectiveCost),
		"currency":        rec.Currency,
		"vendor":          string(rec.Vendor),
		"chargeCategory":  nullableString(rec.ChargeCategory),
		"periodStart":     rec.PeriodStart,
		"periodEnd":       rec.PeriodEnd,
	}

	start := time.Now()
	session := repo.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4jdrv.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, upsertFocusCypher, params)
		if err != nil {
			return nil, err
		}
		return nil, result.Err()
	})
	metrics.GraphQueryDuration.WithLabelValues("upsert_focus_record").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert focus record: %w", err)
	}
	return nil
}

// readTx 在只读会话中执行事务函数
func readTx[T any](ctx context.Context, client *Client, work func(tx neo4jdrv.ManagedTransaction) (T, error)) (T, error) {
	session := client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4jdrv.ManagedTransaction) (any, error) {
		return work(tx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	result, _ := out.(T)
	return result, nil
}

// billingDate 将窗口边界格式化为账期日期字符串，nil 表示该侧无界
func billingDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func stringValue(rec *neo4jdrv.Record, key string) string {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func floatValue(rec *neo4jdrv.Record, key string) *float64 {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func intValue(rec *neo4jdrv.Record, key string) int64 {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return 0
	}
	n, _ := raw.(int64)
	return n
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
