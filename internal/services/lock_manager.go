// internal/services/lock_manager.go
package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// LockManager 会话级别的锁管理器，同一会话的回合串行执行
type LockManager struct {
	sessionLocks  map[string]*LockInfo
	globalLock    sync.RWMutex
	lockTimeout   time.Duration
	maxLocks      int
	cleanupTicker *time.Ticker
	stop          chan struct{}
	stopOnce      sync.Once
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex    *sync.RWMutex
	lastUsed atomic.Int64 // UnixNano
	refs     atomic.Int32 // 正在等待或持有锁的协程数，清理时跳过
}

func (li *LockInfo) touch() {
	li.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed 最后使用时间
func (li *LockInfo) LastUsed() time.Time {
	return time.Unix(0, li.lastUsed.Load())
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	lm := &LockManager{
		sessionLocks: make(map[string]*LockInfo),
		lockTimeout:  30 * time.Minute,
		maxLocks:     200,
		stop:         make(chan struct{}),
	}

	// 启动清理器
	lm.startCleanup(5 * time.Minute)
	return lm
}

// acquire 取得（必要时创建）会话锁信息并增加引用计数
func (lm *LockManager) acquire(sessionID string) *LockInfo {
	lm.globalLock.RLock()
	info, exists := lm.sessionLocks[sessionID]
	if exists {
		info.refs.Add(1)
	}
	lm.globalLock.RUnlock()
	if exists {
		info.touch()
		return info
	}

	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// 双重检查
	if info, exists = lm.sessionLocks[sessionID]; !exists {
		info = &LockInfo{Mutex: &sync.RWMutex{}}
		lm.sessionLocks[sessionID] = info
	}
	info.refs.Add(1)
	info.touch()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	info.touch()
	info.refs.Add(-1)
}

// ExecuteWithSessionLock 在会话写锁保护下执行操作
func (lm *LockManager) ExecuteWithSessionLock(sessionID string, fn func() error) error {
	info := lm.acquire(sessionID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithSessionReadLock 在会话读锁保护下执行操作
func (lm *LockManager) ExecuteWithSessionReadLock(sessionID string, fn func() error) error {
	info := lm.acquire(sessionID)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()
	return fn()
}

// Remove 会话结束后丢弃它的锁
func (lm *LockManager) Remove(sessionID string) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	if info, ok := lm.sessionLocks[sessionID]; ok && info.refs.Load() == 0 {
		delete(lm.sessionLocks, sessionID)
	}
}

// Len 当前持有的锁数量
func (lm *LockManager) Len() int {
	lm.globalLock.RLock()
	defer lm.globalLock.RUnlock()
	return len(lm.sessionLocks)
}

// Stop 停止后台清理
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() {
		lm.cleanupTicker.Stop()
		close(lm.stop)
	})
}

// 定期清理未使用的锁
func (lm *LockManager) startCleanup(interval time.Duration) {
	lm.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-lm.cleanupTicker.C:
				lm.cleanupUnusedLocks(time.Now())
			case <-lm.stop:
				return
			}
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks(now time.Time) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// 只有在锁数量过多时才清理
	if len(lm.sessionLocks) <= lm.maxLocks {
		return 0
	}

	removed := 0
	for sessionID, info := range lm.sessionLocks {
		if info.refs.Load() > 0 {
			continue
		}
		if now.Sub(info.LastUsed()) > lm.lockTimeout {
			delete(lm.sessionLocks, sessionID)
			removed++
		}
	}
	return removed
}
