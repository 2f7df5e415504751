// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"linkhub-api/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 字符串缓存，未命中时通过 singleflight 合并加载
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存服务，client 为 nil 时只合并并发加载、不做缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Loader 加载函数，cache 为 false 时结果不写入缓存
type Loader func(ctx context.Context) (value string, cache bool, err error)

// GetOrLoad 读取缓存，未命中时调用 loader
//
// Redis 不可用时直接回源，缓存故障不影响结果。返回值 hit 表示是否命中缓存。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader Loader) (string, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if c.client != nil {
		val, err := c.client.Get(ctx, key)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return val, true, nil
		}
		if !IsNil(err) {
			span.RecordError(err)
			logger.Warn(ctx, "cache read failed, loading from source", "key", key, "error", err.Error())
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// 使用 singleflight 合并并发请求
	result, err, shared := c.group.Do(key, func() (any, error) {
		val, store, err := loader(ctx)
		if err != nil {
			return "", err
		}
		if store && c.client != nil {
			if err := c.client.Set(ctx, key, val, ttl); err != nil {
				// 缓存写入失败不影响返回结果
				logger.Warn(ctx, "cache write failed", "key", key, "error", err.Error())
			}
		}
		return val, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return "", false, err
	}
	return result.(string), false, nil
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}
	ctx, span := cacheTracer.Start(ctx, "cache.Delete",
		trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	if err := c.client.Del(ctx, keys...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}
