// Package cache 提供剥离结果的缓存抽象与基于 allegro/bigcache 的本地实现。
package cache

import (
	"context"
	"time"
)

// Cache defines the cache interface
type Cache interface {
	// Get 将缓存值反序列化到 value（必须是指针），未命中返回 xerrors.ErrCacheMiss。
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Reset 清空全部缓存项，配置热更新导致数值参数变化时调用。
	Reset() error
	Close() error
}
