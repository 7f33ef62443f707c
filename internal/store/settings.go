package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SettingsDB 本地 sqlite 颜色镜像。上游 /feature-settings 才是权威
// 存储；这里只做写穿缓存：每次成功合并落盘时同步写入，启动时上游
// 不可达则从这里回读，保证离线也有上次的颜色。
type SettingsDB struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSettingsDB 打开（或创建）本地镜像库并建表。
func OpenSettingsDB(path string) (*SettingsDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("设置 WAL 失败: %w", err)
	}
	s := &SettingsDB{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("建表失败: %w", err)
	}
	return s, nil
}

func (s *SettingsDB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feature_colors (
			name       TEXT PRIMARY KEY,
			color      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveColors 全量写入颜色表（upsert，不删除历史条目）。
func (s *SettingsDB) SaveColors(ctx context.Context, colors map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	now := time.Now().Unix()
	for name, color := range colors {
		if name == "" || color == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_colors (name, color, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET color=excluded.color, updated_at=excluded.updated_at`,
			name, color, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("写入颜色失败: %w", err)
		}
	}
	return tx.Commit()
}

// LoadColors 读出全部镜像颜色。
func (s *SettingsDB) LoadColors(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, color FROM feature_colors`)
	if err != nil {
		return nil, fmt.Errorf("读取颜色失败: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, color string
		if err := rows.Scan(&name, &color); err != nil {
			return nil, err
		}
		out[name] = color
	}
	return out, rows.Err()
}

// Close 关闭底层库。
func (s *SettingsDB) Close() error { return s.db.Close() }
