// internal/storage/sql_store.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/models"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS save_slots (
	slot TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	closeness REAL NOT NULL,
	data TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

// SQLStore 基于 database/sql 的存档，支持 sqlite 与 postgres
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLiteStore 打开（或创建）sqlite 存档库
func NewSQLiteStore(path string) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, apperrors.NewConfigError("sqlite 路径为空", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.NewStorageError("创建 sqlite 目录失败", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("打开 sqlite 失败", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, apperrors.NewStorageError("设置 sqlite 参数失败", err)
		}
	}

	return openSQLStore(ctx, db, false)
}

// NewPostgresStore 连接 postgres 存档库
func NewPostgresStore(dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, apperrors.NewConfigError("postgres DSN 为空", nil)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("打开 postgres 失败", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return openSQLStore(ctx, db, true)
}

func openSQLStore(ctx context.Context, db *sql.DB, postgres bool) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStorageError("连接数据库失败", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStorageError("初始化存档表失败", err)
	}
	return &SQLStore{db: db, postgres: postgres}, nil
}

// rebind 把 ? 占位符改写为 postgres 的 $n
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Save(ctx context.Context, slot string, snap *models.SessionSnapshot) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return apperrors.NewStorageError("序列化存档失败", err)
	}

	query := s.rebind(`INSERT INTO save_slots (slot, session_id, closeness, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET
	session_id = excluded.session_id,
	closeness = excluded.closeness,
	data = excluded.data,
	updated_at = excluded.updated_at`)

	_, err = s.db.ExecContext(ctx, query,
		slot, snap.SessionID, snap.Affection.Closeness, string(data), snap.UpdatedAt.UnixNano())
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("写入存档 %s 失败", slot), err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, slot string) (*models.SessionSnapshot, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT data FROM save_slots WHERE slot = ?`), slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("读取存档 %s 失败", slot), err)
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("解析存档 %s 失败", slot), err)
	}
	return &snap, nil
}

func (s *SQLStore) List(ctx context.Context) ([]models.SlotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, session_id, closeness, updated_at FROM save_slots ORDER BY updated_at DESC`)
	if err != nil {
		return nil, apperrors.NewStorageError("查询存档列表失败", err)
	}
	defer rows.Close()

	infos := []models.SlotInfo{}
	for rows.Next() {
		var info models.SlotInfo
		var updated int64
		if err := rows.Scan(&info.Slot, &info.SessionID, &info.Closeness, &updated); err != nil {
			return nil, apperrors.NewStorageError("读取存档列表失败", err)
		}
		info.UpdatedAt = time.Unix(0, updated).UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("读取存档列表失败", err)
	}
	return infos, nil
}

func (s *SQLStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM save_slots WHERE slot = ?`), slot)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("删除存档 %s 失败", slot), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
