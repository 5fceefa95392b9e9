// internal/storage/redis_store.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "sweet"

// RedisStore 以 redis 字符串保存存档，另用一个集合索引所有槽位
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStoreFromAddr 连接 redis 并检查可用性
func NewRedisStoreFromAddr(addr string) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, apperrors.NewConfigError("redis 地址为空", nil)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.NewStorageError("连接 redis 失败", err)
	}
	return NewRedisStore(client, defaultRedisPrefix), nil
}

// NewRedisStore 使用已有客户端
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(slot string) string {
	return fmt.Sprintf("%s:save:%s", s.prefix, slot)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":saves"
}

func (s *RedisStore) Save(ctx context.Context, slot string, snap *models.SessionSnapshot) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return apperrors.NewStorageError("序列化存档失败", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(slot), data, 0)
	pipe.SAdd(ctx, s.indexKey(), slot)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("写入存档 %s 失败", slot), err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, slot string) (*models.SessionSnapshot, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("读取存档 %s 失败", slot), err)
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("解析存档 %s 失败", slot), err)
	}
	return &snap, nil
}

func (s *RedisStore) List(ctx context.Context) ([]models.SlotInfo, error) {
	slots, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, apperrors.NewStorageError("查询存档列表失败", err)
	}

	infos := make([]models.SlotInfo, 0, len(slots))
	for _, slot := range slots {
		snap, err := s.Load(ctx, slot)
		if errors.Is(err, ErrSlotNotFound) {
			// 索引残留
			s.client.SRem(ctx, s.indexKey(), slot)
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, slotInfo(slot, snap))
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	n, err := s.client.Del(ctx, s.key(slot)).Result()
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("删除存档 %s 失败", slot), err)
	}
	s.client.SRem(ctx, s.indexKey(), slot)
	if n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
