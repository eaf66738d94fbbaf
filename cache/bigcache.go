package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3" // 导入高性能本地缓存库

	"github.com/wyfcoding/capvol/xerrors"
)

// BigCache 实现了 `Cache` 接口，使用 `allegro/bigcache` 作为底层存储。
type BigCache struct {
	cache *bigcache.BigCache // 底层的BigCache实例
}

// Options BigCache 构造参数。
type Options struct {
	TTL              time.Duration // 全局过期时间，BigCache 不支持逐键 TTL
	Shards           int           // 分片数，必须是 2 的幂，0 取默认值
	HardMaxCacheSize int           // 最大容量（MB），0 表示不限制
}

// NewBigCache 创建并返回一个新的 BigCache 实例。
func NewBigCache(ctx context.Context, opts Options) (*BigCache, error) {
	config := bigcache.DefaultConfig(opts.TTL)
	if opts.Shards > 0 {
		config.Shards = opts.Shards
	}
	config.HardMaxCacheSize = opts.HardMaxCacheSize
	config.CleanWindow = opts.TTL
	config.Verbose = false

	cache, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("初始化 bigcache 失败: %w", err)
	}

	return &BigCache{cache: cache}, nil
}

// Get 从BigCache中获取指定键的值。
// value 参数必须是一个指针，缓存的数据会反序列化到其中。
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return xerrors.ErrCacheMiss.Clone().WithContext("key", key)
		}
		return err
	}
	return json.Unmarshal(data, value)
}

// Set 将一个键值对设置到BigCache中。
// value 会被JSON序列化后存储；expiration 被忽略，使用构造时的全局 TTL。
func (c *BigCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return c.cache.Set(key, data)
}

// Delete 从BigCache中删除一个或多个键。
// 如果键不存在，不会返回错误。
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Exists 检查BigCache中是否存在指定的键。
func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	return false, err
}

// Reset 清空全部缓存项。
func (c *BigCache) Reset() error {
	return c.cache.Reset()
}

// Len 返回当前缓存项数量。
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 关闭BigCache实例，释放其占用的资源。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
