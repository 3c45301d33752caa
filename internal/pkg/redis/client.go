// internal/pkg/redis/client.go
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis 客户端，统一连接参数的来源。
type Client struct {
	client *goredis.Client
}

// NewClient 创建一个新的 Redis 客户端并验证连通性。
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

// GetClient 暴露底层客户端，供需要 pipeline 等高级操作的调用方使用。
func (c *Client) GetClient() *goredis.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}
