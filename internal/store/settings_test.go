package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *SettingsDB {
	t.Helper()
	db, err := OpenSettingsDB(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("打开镜像库失败: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestSaveLoadRoundtrip 写入后能按原样读回。
func TestSaveLoadRoundtrip(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	err := db.SaveColors(ctx, map[string]string{"rsi": "#ff0000", "macd": "#00ff00"})
	if err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	got, err := db.LoadColors(ctx)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got["rsi"] != "#ff0000" || got["macd"] != "#00ff00" {
		t.Fatalf("回读内容异常: %v", got)
	}
}

// TestUpsertOverwrites 重复写同名条目覆盖旧色，不影响其余条目。
func TestUpsertOverwrites(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	_ = db.SaveColors(ctx, map[string]string{"rsi": "#111111", "macd": "#222222"})
	if err := db.SaveColors(ctx, map[string]string{"rsi": "#333333"}); err != nil {
		t.Fatalf("覆盖写失败: %v", err)
	}
	got, _ := db.LoadColors(ctx)
	if got["rsi"] != "#333333" {
		t.Fatalf("同名条目应被覆盖, 实际=%s", got["rsi"])
	}
	if got["macd"] != "#222222" {
		t.Fatalf("未涉及条目应保留, 实际=%s", got["macd"])
	}
}

// TestEmptyEntriesSkipped 空名或空色不落库。
func TestEmptyEntriesSkipped(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	_ = db.SaveColors(ctx, map[string]string{"": "#111111", "rsi": ""})
	got, _ := db.LoadColors(ctx)
	if len(got) != 0 {
		t.Fatalf("空条目不应落库, 实际=%v", got)
	}
}
