// internal/storage/store.go
package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Corphon/SweetAffection/internal/config"
	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/models"
)

// ErrSlotNotFound 存档槽位不存在
var ErrSlotNotFound = apperrors.NewNotFoundError("存档不存在", nil)

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SaveStore 存档后端
type SaveStore interface {
	Save(ctx context.Context, slot string, snap *models.SessionSnapshot) error
	Load(ctx context.Context, slot string) (*models.SessionSnapshot, error)
	List(ctx context.Context) ([]models.SlotInfo, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// ValidateSlot 槽位名只允许字母、数字、下划线与连字符
func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return apperrors.NewValidationError(fmt.Sprintf("无效的存档槽位: %q", slot), nil)
	}
	return nil
}

func slotInfo(slot string, snap *models.SessionSnapshot) models.SlotInfo {
	return models.SlotInfo{
		Slot:      slot,
		SessionID: snap.SessionID,
		Closeness: snap.Affection.Closeness,
		UpdatedAt: snap.UpdatedAt,
	}
}

// NewSaveStore 按配置选择存档后端
func NewSaveStore(cfg *config.Config) (SaveStore, error) {
	switch cfg.SaveBackend {
	case config.BackendFile, "":
		return NewFileStore(cfg.DataDir)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.BackendPostgres:
		return NewPostgresStore(cfg.PostgresDSN)
	case config.BackendRedis:
		return NewRedisStoreFromAddr(cfg.RedisAddr)
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("未知的存档后端: %s", cfg.SaveBackend), nil)
	}
}
