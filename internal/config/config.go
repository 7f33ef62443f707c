package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config 描述 chartscope 运行所需的全部参数。
type Config struct {
	API       APIConfig       `toml:"api"`
	Server    ServerConfig    `toml:"server"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Log       LogConfig       `toml:"log"`
}

// APIConfig 数据边界（只读 HTTP API）的连接参数。
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ServerConfig 本地看板 HTTP 服务的参数。
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DashboardConfig 看板核心的调参项。
type DashboardConfig struct {
	// LoadDebounceMillis 选区/区间变更到真正发起拉取之间的防抖窗口。
	LoadDebounceMillis int `toml:"load_debounce_millis"`
	// SaveDebounceMillis 颜色持久化的合并窗口（拖动取色器只写一次）。
	SaveDebounceMillis int `toml:"save_debounce_millis"`
	// SettingsDB 本地颜色镜像的 sqlite 路径。
	SettingsDB string `toml:"settings_db"`
	// Palette 覆盖默认调色板（可选）。
	Palette []string `toml:"palette"`
}

// LogConfig 日志参数。
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.API.BaseURL == "" {
		out.API.BaseURL = "http://127.0.0.1:8000"
	}
	if out.API.TimeoutSeconds <= 0 {
		out.API.TimeoutSeconds = 15
	}
	if out.Server.Addr == "" {
		out.Server.Addr = ":9980"
	}
	if out.Dashboard.LoadDebounceMillis <= 0 {
		out.Dashboard.LoadDebounceMillis = 150
	}
	if out.Dashboard.SaveDebounceMillis <= 0 {
		out.Dashboard.SaveDebounceMillis = 400
	}
	if out.Dashboard.SettingsDB == "" {
		out.Dashboard.SettingsDB = "chartscope.db"
	}
	if out.Log.Level == "" {
		out.Log.Level = "info"
	}
	return out
}

// APITimeout 返回 API 请求超时。
func (c Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// LoadDebounce 返回拉取防抖窗口。
func (c Config) LoadDebounce() time.Duration {
	return time.Duration(c.Dashboard.LoadDebounceMillis) * time.Millisecond
}

// SaveDebounce 返回持久化合并窗口。
func (c Config) SaveDebounce() time.Duration {
	return time.Duration(c.Dashboard.SaveDebounceMillis) * time.Millisecond
}

// Load 读取 TOML 配置；文件不存在时返回默认配置。
// 环境变量 CHARTSCOPE_API_URL / CHARTSCOPE_ADDR 优先于文件内容。
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("读取配置失败: %w", err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("解析配置失败: %w", err)
		}
	}
	out := cfg.withDefaults()
	if v := os.Getenv("CHARTSCOPE_API_URL"); v != "" {
		out.API.BaseURL = v
	}
	if v := os.Getenv("CHARTSCOPE_ADDR"); v != "" {
		out.Server.Addr = v
	}
	return out, nil
}
