package dashboard

import (
	"context"
	"sync"
	"time"

	"chartscope/internal/adjust"
	"chartscope/internal/catalog"
	"chartscope/internal/dataapi"
	"chartscope/internal/loadctl"
	"chartscope/internal/logger"
	"chartscope/internal/pkg/clock"
	"chartscope/internal/series"

	"golang.org/x/sync/errgroup"
)

// DataSource 只读数据边界。用接口隔离，测试注入内存假源。
type DataSource interface {
	Tickers(ctx context.Context) ([]dataapi.Ticker, error)
	Indexes(ctx context.Context) ([]dataapi.Index, error)
	InstrumentMeta(ctx context.Context, ticker string) (dataapi.InstrumentMeta, error)
	FeatureCatalog(ctx context.Context) ([]dataapi.Feature, error)
	Bars(ctx context.Context, ticker, from, to string) (dataapi.BarsResult, error)
	Features(ctx context.Context, ticker, from, to string, names []string) (dataapi.FeaturesResult, error)
	IndexSeries(ctx context.Context, instrument, from, to string, names []string) (dataapi.IndexSeriesResult, error)
}

// Config Service 的构造参数。
type Config struct {
	Source       DataSource
	Adjust       *adjust.Store
	LoadDebounce time.Duration
	Clock        clock.Clock
}

// Service 看板核心：目录、选区、加载周期与视图组装。
type Service struct {
	src    DataSource
	adjust *adjust.Store

	Tickers  *catalog.Catalog
	Features *catalog.Catalog
	Indexes  *catalog.Catalog

	coord *loadctl.Coordinator

	mu    sync.RWMutex
	from  string
	to    string
	view  *View
	built map[string]*series.Built // 当前视图各叠加序列的构建产物
}

// NewService 创建 Service；ctx 贯穿所有后台拉取。
func NewService(ctx context.Context, cfg Config) *Service {
	s := &Service{
		src:      cfg.Source,
		adjust:   cfg.Adjust,
		Tickers:  catalog.New(),
		Features: catalog.New(),
		Indexes:  catalog.New(),
		built:    make(map[string]*series.Built),
	}
	s.coord = loadctl.New(ctx, loadctl.Config{
		Debounce: cfg.LoadDebounce,
		Clock:    cfg.Clock,
		Fetch:    s.runCycle,
	})
	return s
}

// LoadCatalogs 启动时拉取三类目录。目录失败是致命的：没有可选
// universe 整个看板无意义。
func (s *Service) LoadCatalogs(ctx context.Context) error {
	tickers, err := s.src.Tickers(ctx)
	if err != nil {
		return err
	}
	items := make([]catalog.Item, 0, len(tickers))
	for _, t := range tickers {
		items = append(items, catalog.Item{ID: t.Ticker, Label: t.Ticker, Kind: t.Type, Start: t.Start, End: t.End})
	}
	s.Tickers.SetItems(items)

	features, err := s.src.FeatureCatalog(ctx)
	if err != nil {
		return err
	}
	items = items[:0]
	for _, f := range features {
		items = append(items, catalog.Item{ID: f.Name, Label: f.Name, Kind: f.Source})
	}
	s.Features.SetItems(items)

	indexes, err := s.src.Indexes(ctx)
	if err != nil {
		return err
	}
	items = items[:0]
	for _, ix := range indexes {
		items = append(items, catalog.Item{ID: ix.ID, Label: ix.Label, Kind: ix.Kind, Start: ix.Start, End: ix.End})
	}
	s.Indexes.SetItems(items)
	return nil
}

// SelectInstrument 切换 instrument 并调度重载。
func (s *Service) SelectInstrument(id string) bool {
	if !s.Tickers.Select(id) {
		return false
	}
	s.coord.Trigger()
	return true
}

// SetRange 更新日期区间并调度重载。
func (s *Service) SetRange(from, to string) {
	s.mu.Lock()
	s.from, s.to = from, to
	s.mu.Unlock()
	s.coord.Trigger()
}

// ToggleFeature 勾选/取消一个特征叠加并调度重载。
func (s *Service) ToggleFeature(id string) bool {
	if !s.Features.Has(id) {
		return false
	}
	s.Features.Toggle(id)
	s.coord.Trigger()
	return true
}

// ToggleIndex 勾选/取消一个指数叠加并调度重载。
func (s *Service) ToggleIndex(id string) bool {
	if !s.Indexes.Has(id) {
		return false
	}
	s.Indexes.Toggle(id)
	s.coord.Trigger()
	return true
}

// Range 返回当前日期区间。
func (s *Service) Range() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.from, s.to
}

// View 返回最近一次提交的视图；尚未加载过返回 nil。
func (s *Service) View() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Loading 是否有加载在途。
func (s *Service) Loading() bool { return s.coord.Loading() }

// runCycle 执行一个加载周期：并行拉 bars/features/indexes，逐条
// 序列走构建与缺口扫描，最后套调整参数组装视图。三个面板是独立
// 失败域：任何一路失败只在 Errors 里留言，不影响其余面板。
func (s *Service) runCycle(ctx context.Context, cycle loadctl.Cycle) {
	defer s.coord.Complete(cycle)

	instrument := s.Tickers.Current()
	from, to := s.Range()
	featureNames := s.Features.Selected()
	indexNames := s.Indexes.Selected()

	view := &View{
		CycleID:    cycle.ID,
		Instrument: instrument,
		From:       from,
		To:         to,
		Errors:     make(map[string]string),
		LoadedAt:   time.Now(),
	}
	if instrument == "" || from == "" || to == "" {
		view.Empty = true
		s.commit(cycle, view, nil)
		return
	}

	var (
		barsRes  dataapi.BarsResult
		featRes  dataapi.FeaturesResult
		indexRes dataapi.IndexSeriesResult
		barsErr  error
		featErr  error
		indexErr error
		metaErr  error
	)

	// 三路请求互不取消：失败域独立，错误落在各自面板。
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.Go(func() error {
		barsRes, barsErr = s.src.Bars(gctx, instrument, from, to)
		view.Meta, metaErr = s.src.InstrumentMeta(gctx, instrument)
		return nil
	})
	if len(featureNames) > 0 {
		g.Go(func() error {
			featRes, featErr = s.src.Features(gctx, instrument, from, to, featureNames)
			return nil
		})
	}
	if len(indexNames) > 0 {
		g.Go(func() error {
			indexRes, indexErr = s.src.IndexSeries(gctx, instrument, from, to, indexNames)
			return nil
		})
	}
	_ = g.Wait()

	built := make(map[string]*series.Built)

	if barsErr != nil {
		view.Errors[panelBars] = barsErr.Error()
		logger.Warnf("bars 拉取失败 instrument=%s: %v", instrument, barsErr)
	} else {
		s.applyBars(view, barsRes)
	}
	if metaErr != nil {
		view.Errors[panelMeta] = metaErr.Error()
	}
	if featErr != nil {
		view.Errors[panelFeatures] = featErr.Error()
		logger.Warnf("features 拉取失败 instrument=%s: %v", instrument, featErr)
	} else {
		for _, name := range featureNames {
			points, ok := featRes.Features[name]
			if !ok {
				continue
			}
			b := series.Build(name, points)
			built[name] = &b
			view.Overlays = append(view.Overlays, s.renderOverlay(instrument, &b, "feature"))
		}
	}
	if indexErr != nil {
		view.Errors[panelIndexes] = indexErr.Error()
		logger.Warnf("index-series 拉取失败 instrument=%s: %v", instrument, indexErr)
	} else {
		for _, name := range indexNames {
			points, ok := indexRes.Indexes[name]
			if !ok {
				continue
			}
			b := series.Build(name, points)
			built[name] = &b
			view.Overlays = append(view.Overlays, s.renderOverlay(instrument, &b, "index"))
		}
	}

	view.Empty = len(view.Candles) == 0 && len(view.Overlays) == 0
	s.commit(cycle, view, built)
}

// applyBars 把 K 线装入视图，推导 BarStats 并扫描价格缺口。
func (s *Service) applyBars(view *View, res dataapi.BarsResult) {
	closes := make([]series.RawPoint, 0, len(res.Bars))
	var stats *series.BarStats
	for _, bar := range res.Bars {
		view.Candles = append(view.Candles, Candle(bar))
		closes = append(closes, series.RawPoint{Date: bar.Date, Value: bar.Close})
		for _, v := range []*float64{bar.Low, bar.High} {
			if v == nil {
				continue
			}
			if stats == nil {
				stats = &series.BarStats{Min: *v, Max: *v}
			} else {
				if *v < stats.Min {
					stats.Min = *v
				}
				if *v > stats.Max {
					stats.Max = *v
				}
			}
		}
	}
	view.BarStats = stats
	s.adjust.SetBarStats(view.Instrument, stats)
	view.PriceMarkers = series.ScanGaps(series.Clean(closes), priceMarkerColor, series.MarkerPositionBelow)
}

// renderOverlay 归一化产物 + 调整参数 → 渲染序列。
func (s *Service) renderOverlay(instrument string, b *series.Built, kind string) RenderSeries {
	settings := s.adjust.Settings(instrument, b.Name)
	return RenderSeries{
		Name:         b.Name,
		Kind:         kind,
		Color:        settings.Color,
		Width:        overlayWidth,
		Scale:        settings.Scale,
		Offset:       settings.Offset,
		Points:       applyAdjustment(b.Normalized, settings),
		Markers:      series.ScanGaps(b.Cleaned, settings.Color, series.MarkerPositionAbove),
		MissingRatio: series.MissingRatio(b.Cleaned),
		Stats:        b.Stats,
	}
}

// commit 周期结果提交。过期周期（期间又发起了更新的周期）直接丢弃，
// 保证视图永远反映最新一次发起的选区。
func (s *Service) commit(cycle loadctl.Cycle, view *View, built map[string]*series.Built) {
	if !s.coord.IsCurrent(cycle) {
		logger.Debugf("丢弃过期周期 %s (gen=%d)", cycle.ID, cycle.Gen)
		return
	}
	s.mu.Lock()
	s.view = view
	s.built = built
	s.mu.Unlock()
}

// UpdateSettings 套用一次调整更新并就地刷新受影响的叠加序列，
// 不触发网络重载。
func (s *Service) UpdateSettings(name string, upd adjust.Update) adjust.Settings {
	instrument := s.Tickers.Current()
	settings := s.adjust.Apply(instrument, name, upd)
	s.refreshOverlay(name)
	return settings
}

// Rescale scale 回默认、offset 保留。
func (s *Service) Rescale(name string) adjust.Settings {
	settings := s.adjust.Rescale(s.Tickers.Current(), name)
	s.refreshOverlay(name)
	return settings
}

// ResetAdjustment scale/offset 双双回默认并重建归一化序列。
func (s *Service) ResetAdjustment(name string) adjust.Settings {
	settings := s.adjust.Reset(s.Tickers.Current(), name)
	s.Renormalize(name)
	return settings
}

// ClearAdjustments 清掉当前 instrument 的全部覆盖并刷新所有叠加序列。
func (s *Service) ClearAdjustments() {
	s.adjust.ClearOverrides(s.Tickers.Current())
	s.mu.RLock()
	names := make([]string, 0, len(s.built))
	for name := range s.built {
		names = append(names, name)
	}
	s.mu.RUnlock()
	for _, name := range names {
		s.refreshOverlay(name)
	}
}

// Renormalize 从 Cleaned 重建某条序列的统计与归一化点，再刷新渲染。
// 用于外部统计变化后的显式重算。
func (s *Service) Renormalize(name string) {
	s.mu.Lock()
	if b, ok := s.built[name]; ok {
		b.Stats = series.Summarize(b.Cleaned)
		b.Normalized = series.Normalize(b.Cleaned, b.Stats)
	}
	s.mu.Unlock()
	s.refreshOverlay(name)
}

// refreshOverlay 用最新调整参数重算视图里对应的渲染序列。
func (s *Service) refreshOverlay(name string) {
	instrument := s.Tickers.Current()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return
	}
	b, ok := s.built[name]
	if !ok {
		return
	}
	for i := range s.view.Overlays {
		if s.view.Overlays[i].Name != name {
			continue
		}
		s.view.Overlays[i] = s.renderOverlay(instrument, b, s.view.Overlays[i].Kind)
		return
	}
}
