// internal/storage/file_cache.go
package storage

import (
	"sort"
	"sync"
	"time"
)

// fileCache 存档文件内容的内存缓存
type fileCache struct {
	entries    map[string]*fileCacheEntry
	mutex      sync.RWMutex
	maxSize    int           // 最大缓存条目数
	expiration time.Duration // 缓存过期时间
}

type fileCacheEntry struct {
	Data      []byte
	CreatedAt time.Time
}

func newFileCache(maxSize int, expiration time.Duration) *fileCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if expiration <= 0 {
		expiration = 5 * time.Minute
	}
	return &fileCache{
		entries:    make(map[string]*fileCacheEntry),
		maxSize:    maxSize,
		expiration: expiration,
	}
}

func (c *fileCache) get(path string) ([]byte, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[path]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return nil, false
	}
	return entry.Data, true
}

func (c *fileCache) put(path string, data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[path] = &fileCacheEntry{Data: data, CreatedAt: time.Now()}
	c.enforceMaxSizeLocked()
}

func (c *fileCache) invalidate(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, path)
}

// cleanup 清理过期条目并限制缓存大小
func (c *fileCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for path, entry := range c.entries {
		if now.Sub(entry.CreatedAt) > c.expiration {
			delete(c.entries, path)
		}
	}
	c.enforceMaxSizeLocked()
}

func (c *fileCache) enforceMaxSizeLocked() {
	if len(c.entries) <= c.maxSize {
		return
	}

	type keyAge struct {
		key string
		age time.Time
	}
	entries := make([]keyAge, 0, len(c.entries))
	for k, v := range c.entries {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}
	// 按创建时间排序，最旧的在前
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	for i := 0; i < len(entries)-c.maxSize; i++ {
		delete(c.entries, entries[i].key)
	}
}

func (c *fileCache) size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}
