package utils

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// Cache 带 TTL 的本地 LRU 缓存，用于分类/技术等筛选项
type Cache struct {
	mu       sync.Mutex
	lruCache *lru.Cache[string, CacheItem]
	now      func() time.Time
}

// NewCache 创建指定容量的缓存，size <= 0 时使用 256
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 256
	}
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		// 只有 size <= 0 才会出错
		panic(err)
	}
	return &Cache{lruCache: l, now: time.Now}
}

// Set 设置缓存，TTL 为过期时间
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Get 获取缓存，不存在或已过期时 ok 为 false
func (c *Cache) Get(key string) (any, bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil, false
	}
	return val.Data, true
}

// Delete 删除指定缓存
func (c *Cache) Delete(key string) {
	c.lruCache.Remove(key)
}

// DeletePrefix 删除所有以 prefix 开头的缓存
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.lruCache.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lruCache.Remove(k)
		}
	}
}
