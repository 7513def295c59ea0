// Package neo4j 提供成本图谱库访问层实现
package neo4j

import (
	"context"
	"fmt"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	drvconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.opentelemetry.io/otel"

	"cloudcost-kg-api/internal/config"
)

var tracer = otel.Tracer("neo4j")

// Client Neo4j 客户端
type Client struct {
	driver neo4jdrv.DriverWithContext
	config *config.Neo4jConfig
}

// NewClient 创建 Neo4j 客户端并验证连通性
func NewClient(ctx context.Context, cfg *config.Neo4jConfig) (*Client, error) {
	driver, err := neo4jdrv.NewDriverWithContext(
		cfg.URI,
		neo4jdrv.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *drvconfig.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
			}
			if cfg.MaxTransactionRetryTime > 0 {
				c.MaxTransactionRetryTime = cfg.MaxTransactionRetryTime
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Client{
		driver: driver,
		config: cfg,
	}, nil
}

// Driver 获取底层 Neo4j 驱动
func (c *Client) Driver() neo4jdrv.DriverWithContext {
	return c.driver
}

// ReadSession 创建只读会话，调用方负责 Close
func (c *Client) ReadSession(ctx context.Context) neo4jdrv.SessionWithContext {
	return c.driver.NewSession(ctx, neo4jdrv.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   neo4jdrv.AccessModeRead,
	})
}

// WriteSession 创建读写会话，调用方负责 Close
func (c *Client) WriteSession(ctx context.Context) neo4jdrv.SessionWithContext {
	return c.driver.NewSession(ctx, neo4jdrv.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   neo4jdrv.AccessModeWrite,
	})
}

// Close 关闭 Neo4j 连接
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "neo4j.HealthCheck")
	defer span.End()

	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
