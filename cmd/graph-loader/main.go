// Package main FOCUS 账单装载任务
//
// 读取 FOCUS 格式的账单 CSV，逐行写入成本图谱。
// 列名遵循 FOCUS 规范（ServiceName、BilledCost、ChargePeriodStart 等），
// 按表头定位，列顺序不限。
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"cloudcost-kg-api/internal/config"
	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
	"cloudcost-kg-api/internal/infrastructure/persistence/neo4j"
	"cloudcost-kg-api/internal/infrastructure/persistence/redis"
	"cloudcost-kg-api/pkg/logger"
)

func main() {
	var (
		filePath = flag.String("file", "", "FOCUS CSV file to load")
		vendor   = flag.String("vendor", string(entity.VendorAWS), "billing vendor (AWS/Azure/GCP)")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: graph-loader -file <focus.csv> [-vendor AWS]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, *filePath, entity.Vendor(*vendor)); err != nil {
		logger.Error(ctx, "load failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, filePath string, vendor entity.Vendor) error {
	graphClient, err := neo4j.NewClient(ctx, &cfg.Graph.Neo4j)
	if err != nil {
		return fmt.Errorf("connect neo4j: %w", err)
	}
	defer graphClient.Close(ctx)
	graph := neo4j.NewCostGraphRepo(graphClient)

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	loaded, skipped, err := loadRecords(ctx, graph, f, vendor)
	if err != nil {
		return err
	}
	logger.Info(ctx, "load complete", "loaded", loaded, "skipped", skipped)

	// 图谱内容变更后旧答案失真，清空问答缓存
	if redisClient, err := redis.NewClient(&cfg.Cache.Redis); err == nil {
		defer redisClient.Close()
		if err := redis.NewCache(redisClient).InvalidateAnswers(ctx); err != nil {
			logger.Warn(ctx, "failed to invalidate answer cache", "error", err.Error())
		}
	}
	return nil
}

func loadRecords(ctx context.Context, graph repository.CostGraphRepository, r io.Reader, vendor entity.Vendor) (loaded, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["servicename"]; !ok {
		return 0, 0, fmt.Errorf("missing required column ServiceName")
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return loaded, skipped, fmt.Errorf("read line %d: %w", line, err)
		}

		rec, err := parseRecord(cols, row, vendor)
		if err != nil {
			logger.Warn(ctx, "skipping row", "line", line, "error", err.Error())
			skipped++
			continue
		}
		if err := graph.UpsertFocusRecord(ctx, rec); err != nil {
			return loaded, skipped, fmt.Errorf("upsert line %d: %w", line, err)
		}
		loaded++
		if loaded%500 == 0 {
			logger.Info(ctx, "progress", "loaded", loaded)
		}
	}
	return loaded, skipped, nil
}

// columnIndex 表头列名（小写）到下标的映射
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func parseRecord(cols map[string]int, row []string, vendor entity.Vendor) (*repository.FocusRecord, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	service := field("servicename")
	if service == "" {
		return nil, fmt.Errorf("empty ServiceName")
	}

	billed, err := parseNullableFloat(field("billedcost"))
	if err != nil {
		return nil, fmt.Errorf("BilledCost: %w", err)
	}
	effective, err := parseNullableFloat(field("effectivecost"))
	if err != nil {
		return nil, fmt.Errorf("EffectiveCost: %w", err)
	}

	if v := field("providername"); v != "" {
		vendor = entity.Vendor(v)
	}

	rec := &repository.FocusRecord{
		CostID:          field("chargeid"),
		ServiceName:     service,
		ServiceCategory: field("servicecategory"),
		ResourceID:      field("resourceid"),
		ResourceName:    field("resourcename"),
		ResourceType:    field("resourcetype"),
		BilledCost:      billed,
		EffectiveCost:   effective,
		Currency:        field("billingcurrency"),
		Vendor:          vendor,
		PeriodStart:     field("chargeperiodstart"),
		PeriodEnd:       field("chargeperiodend"),
	}
	if rec.CostID == "" {
		rec.CostID = uuid.NewString()
	}
	if rec.ResourceName == "" {
		rec.ResourceName = rec.ResourceID
	}
	if v := field("chargecategory"); v != "" {
		rec.ChargeCategory = &v
	}
	return rec, nil
}

func parseNullableFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
