package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storeadmin/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 缓存实现，承担会话缓存、密钥查找缓存与限流计数
type Cache struct {
	client *goredis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx := context.Background()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping 测试 Redis 连接
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ========== 会话缓存 ==========

// CacheSession 缓存会话
func (c *Cache) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	key := fmt.Sprintf("session:%s", sessionID)
	return c.client.Set(c.ctx, key, userID, ttl).Err()
}

// GetCachedSession 查询缓存的会话，未命中返回空串
func (c *Cache) GetCachedSession(sessionID string) (string, error) {
	key := fmt.Sprintf("session:%s", sessionID)
	userID, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", err
	}
	return userID, nil
}

// DeleteCachedSession 删除缓存的会话
func (c *Cache) DeleteCachedSession(sessionID string) error {
	key := fmt.Sprintf("session:%s", sessionID)
	return c.client.Del(c.ctx, key).Err()
}

// ========== API密钥查找缓存 ==========
//
// 只缓存命中记录，记录变更时必须调用 InvalidateAPIKey，
// 保证停用/删除立即生效。

// CacheAPIKey 按摘要缓存API密钥
func (c *Cache) CacheAPIKey(apiKey *domain.APIKey, ttl time.Duration) error {
	key := fmt.Sprintf("apikey:%s", apiKey.KeyHash)
	data, err := json.Marshal(apiKey)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

// GetCachedAPIKey 按摘要查询缓存的API密钥
func (c *Cache) GetCachedAPIKey(keyHash string) (*domain.APIKey, error) {
	key := fmt.Sprintf("apikey:%s", keyHash)
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var apiKey domain.APIKey
	if err := json.Unmarshal([]byte(data), &apiKey); err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// InvalidateAPIKey 按摘要删除缓存的API密钥
func (c *Cache) InvalidateAPIKey(keyHash string) error {
	key := fmt.Sprintf("apikey:%s", keyHash)
	return c.client.Del(c.ctx, key).Err()
}

// ========== 限流 ==========

// IncrementRateLimit 自增限流计数，首次自增时设置窗口过期
func (c *Cache) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(c.ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		c.client.Expire(c.ctx, redisKey, window)
	}
	return count, nil
}

// GetRateLimit 查询限流计数
func (c *Cache) GetRateLimit(key string) (int64, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := c.client.Get(c.ctx, redisKey).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
