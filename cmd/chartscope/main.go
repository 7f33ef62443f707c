package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chartscope/internal/adjust"
	"chartscope/internal/config"
	"chartscope/internal/dashboard"
	"chartscope/internal/dataapi"
	"chartscope/internal/diag"
	"chartscope/internal/logger"
	"chartscope/internal/store"
	httpdash "chartscope/internal/transport/http/dashboard"

	"github.com/joho/godotenv"
)

func main() {
	var (
		configPath = flag.String("config", "chartscope.toml", "配置文件路径")
		inspect    = flag.Bool("inspect", false, "一次性巡检后退出（配合 -ticker/-from/-to/-features）")
		ticker     = flag.String("ticker", "", "巡检标的")
		from       = flag.String("from", "", "巡检起始日期 YYYY-MM-DD")
		to         = flag.String("to", "", "巡检截止日期 YYYY-MM-DD")
		features   = flag.String("features", "", "巡检特征，逗号分隔")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.File)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runOptions{
		inspect:  *inspect,
		ticker:   *ticker,
		from:     *from,
		to:       *to,
		features: splitCSV(*features),
	}); err != nil {
		logger.Errorf("退出: %v", err)
		os.Exit(1)
	}
}

type runOptions struct {
	inspect  bool
	ticker   string
	from     string
	to       string
	features []string
}

func run(ctx context.Context, cfg config.Config, opts runOptions) error {
	client := dataapi.NewClient(cfg.API.BaseURL, cfg.APITimeout())

	mirror, err := store.OpenSettingsDB(cfg.Dashboard.SettingsDB)
	if err != nil {
		return err
	}
	defer func() {
		_ = mirror.Close()
	}()

	adj := adjust.NewStore(adjust.StoreConfig{
		Palette:      cfg.Dashboard.Palette,
		SaveDebounce: cfg.SaveDebounce(),
		Saver:        &colorSink{client: client, mirror: mirror},
	})
	loadColors(ctx, client, mirror, adj)

	svc := dashboard.NewService(ctx, dashboard.Config{
		Source:       client,
		Adjust:       adj,
		LoadDebounce: cfg.LoadDebounce(),
	})
	if err := svc.LoadCatalogs(ctx); err != nil {
		return fmt.Errorf("目录加载失败: %w", err)
	}

	if opts.inspect {
		return runInspect(ctx, svc, opts)
	}

	srv, err := httpdash.NewHTTPServer(httpdash.HTTPConfig{
		Addr:   cfg.Server.Addr,
		Svc:    svc,
		Health: client.Health,
	})
	if err != nil {
		return err
	}
	logger.Infof("chartscope 启动 addr=%s api=%s", cfg.Server.Addr, cfg.API.BaseURL)
	err = srv.Start(ctx)
	// 退出前把未落盘的颜色改动冲掉。
	adj.Flush(context.Background())
	return err
}

// loadColors 启动时优先从上游取颜色，上游不可达回落到本地镜像。
func loadColors(ctx context.Context, client *dataapi.Client, mirror *store.SettingsDB, adj *adjust.Store) {
	settings, err := client.FeatureSettings(ctx)
	if err == nil {
		colors := make(map[string]string, len(settings))
		for name, s := range settings {
			colors[name] = s.Color
		}
		adj.LoadColors(colors)
		return
	}
	logger.Warnf("上游颜色读取失败，回落到本地镜像: %v", err)
	colors, err := mirror.LoadColors(ctx)
	if err != nil {
		logger.Warnf("本地镜像读取失败: %v", err)
		return
	}
	adj.LoadColors(colors)
}

// runInspect 一次性加载指定选区，打印巡检表后退出。
func runInspect(ctx context.Context, svc *dashboard.Service, opts runOptions) error {
	if opts.ticker == "" || opts.from == "" || opts.to == "" {
		return errors.New("-inspect 需要 -ticker/-from/-to")
	}
	if !svc.SelectInstrument(opts.ticker) {
		return fmt.Errorf("未知 ticker: %s", opts.ticker)
	}
	svc.SetRange(opts.from, opts.to)
	for _, name := range opts.features {
		if !svc.ToggleFeature(name) {
			return fmt.Errorf("未知特征: %s", name)
		}
	}

	deadline := time.Now().Add(time.Minute)
	for svc.View() == nil || svc.Loading() {
		if time.Now().After(deadline) {
			return errors.New("巡检加载超时")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	fmt.Print(diag.ViewTable(svc.View()))
	return nil
}

// colorSink 颜色持久化的双写出口：上游权威存储 + 本地 sqlite 镜像。
// 任一路失败都上抛给调用方记日志，内存状态不受影响。
type colorSink struct {
	client *dataapi.Client
	mirror *store.SettingsDB
}

func (c *colorSink) SaveColors(ctx context.Context, colors map[string]string) error {
	settings := make(map[string]dataapi.FeatureSetting, len(colors))
	for name, color := range colors {
		settings[name] = dataapi.FeatureSetting{Color: color}
	}
	upstreamErr := c.client.SaveFeatureSettings(ctx, settings)
	mirrorErr := c.mirror.SaveColors(ctx, colors)
	return errors.Join(upstreamErr, mirrorErr)
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
