// 本文件实现了进程内存缓存，用于缓存 (关键词, 注释标签) 的相似度判定结果，
// 避免同一对文本在多次检索之间重复调用向量模型。
// 支持 TTL 过期、LRU 淘汰和后台清理。

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Anniext/schemagraph/core"
)

// entry 单条缓存记录。
type entry struct {
	key        string
	value      any
	expiresAt  time.Time
	lastAccess time.Time
}

// isExpired 判断记录是否过期。
func (e *entry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// MemoryCache 内存缓存实现。
type MemoryCache struct {
	data       map[string]*entry
	mutex      sync.RWMutex
	maxEntries int
	logger     core.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache 创建内存缓存。maxEntries 小于等于零时使用默认上限。
func NewMemoryCache(maxEntries int, logger core.Logger) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	cache := &MemoryCache{
		data:       make(map[string]*entry),
		maxEntries: maxEntries,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}

	go cache.cleanupExpired()

	logger.Info("内存缓存已初始化", "max_entries", maxEntries)
	return cache
}

// Get 获取缓存值，键不存在或已过期时返回 ErrCacheKeyNotFound。
func (m *MemoryCache) Get(ctx context.Context, key string) (any, error) {
	m.mutex.RLock()
	e, exists := m.data[key]
	m.mutex.RUnlock()

	if !exists {
		return nil, core.ErrCacheKeyNotFound
	}

	if e.isExpired() {
		m.mutex.Lock()
		delete(m.data, key)
		m.mutex.Unlock()
		return nil, core.ErrCacheKeyNotFound
	}

	m.mutex.Lock()
	e.lastAccess = time.Now()
	m.mutex.Unlock()

	return e.value, nil
}

// Set 设置缓存值，超出容量时按最近访问时间淘汰。
func (m *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	now := time.Now()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxEntries {
		m.evictLRU()
	}

	m.data[key] = &entry{
		key:        key,
		value:      value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}

	return nil
}

// Delete 删除缓存值。
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.data[key]; !exists {
		return core.ErrCacheKeyNotFound
	}

	delete(m.data, key)
	return nil
}

// Clear 清空全部缓存。
func (m *MemoryCache) Clear(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data = make(map[string]*entry)
	return nil
}

// Size 返回当前缓存条目数。
func (m *MemoryCache) Size() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.data)
}

// evictLRU 淘汰最久未访问的条目，调用方需持有写锁。
func (m *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time

	for key, e := range m.data {
		if oldestKey == "" || e.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = e.lastAccess
		}
	}

	if oldestKey != "" {
		delete(m.data, oldestKey)
	}
}

// cleanupExpired 后台定期清理过期条目。
func (m *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.mutex.Lock()
			for key, e := range m.data {
				if e.isExpired() {
					delete(m.data, key)
				}
			}
			m.mutex.Unlock()
		}
	}
}

// Close 停止后台清理协程。
func (m *MemoryCache) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
