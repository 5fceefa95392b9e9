// internal/storage/file_storage.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"
)

const savesDir = "saves"

// FileStore 以 JSON 文件保存存档，每个槽位一个文件
type FileStore struct {
	BaseDir string

	// 并发控制
	fileLocks sync.Map // 文件级别锁 path -> *sync.RWMutex

	cache *fileCache
	stop  chan struct{}
	once  sync.Once
}

// NewFileStore 创建文件存档
func NewFileStore(dataDir string) (*FileStore, error) {
	baseDir := filepath.Join(dataDir, savesDir)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, apperrors.NewStorageError("创建存储目录失败", err)
	}

	fs := &FileStore{
		BaseDir: baseDir,
		cache:   newFileCache(100, 5*time.Minute),
		stop:    make(chan struct{}),
	}

	// 启动缓存清理
	go fs.cacheCleanupLoop(2 * time.Minute)

	return fs, nil
}

// 获取文件锁
func (fs *FileStore) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (fs *FileStore) slotPath(slot string) string {
	return filepath.Join(fs.BaseDir, slot+".json")
}

// Save 原子写入存档
func (fs *FileStore) Save(ctx context.Context, slot string, snap *models.SessionSnapshot) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("序列化存档失败", err)
	}

	fullPath := fs.slotPath(slot)
	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	// 原子性文件写入
	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return apperrors.NewStorageError("保存临时文件失败", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			utils.GetLogger().Warn("清理临时文件失败", map[string]interface{}{
				"path":  tempPath,
				"error": removeErr.Error(),
			})
		}
		return apperrors.NewStorageError("保存文件失败", err)
	}

	fs.cache.invalidate(fullPath)
	return nil
}

// Load 读取存档，槽位不存在时返回 ErrSlotNotFound
func (fs *FileStore) Load(ctx context.Context, slot string) (*models.SessionSnapshot, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := fs.readFile(fs.slotPath(slot))
	if err != nil {
		return nil, err
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("解析存档 %s 失败", slot), err)
	}
	return &snap, nil
}

func (fs *FileStore) readFile(fullPath string) ([]byte, error) {
	if data, ok := fs.cache.get(fullPath); ok {
		return data, nil
	}

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSlotNotFound
		}
		return nil, apperrors.NewStorageError("读取文件失败", err)
	}

	fs.cache.put(fullPath, content)
	return content, nil
}

// List 所有存档，按更新时间倒序
func (fs *FileStore) List(ctx context.Context) ([]models.SlotInfo, error) {
	entries, err := os.ReadDir(fs.BaseDir)
	if err != nil {
		return nil, apperrors.NewStorageError("读取目录失败", err)
	}

	infos := make([]models.SlotInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		slot := strings.TrimSuffix(entry.Name(), ".json")
		snap, err := fs.Load(ctx, slot)
		if err != nil {
			utils.GetLogger().Warn("跳过无法读取的存档", map[string]interface{}{
				"slot":  slot,
				"error": err.Error(),
			})
			continue
		}
		infos = append(infos, slotInfo(slot, snap))
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Delete 删除存档
func (fs *FileStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}

	fullPath := fs.slotPath(slot)
	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return ErrSlotNotFound
		}
		return apperrors.NewStorageError("删除文件失败", err)
	}

	fs.cache.invalidate(fullPath)
	return nil
}

// Close 停止缓存清理
func (fs *FileStore) Close() error {
	fs.once.Do(func() { close(fs.stop) })
	return nil
}

func (fs *FileStore) cacheCleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fs.cache.cleanup()
		case <-fs.stop:
			return
		}
	}
}
