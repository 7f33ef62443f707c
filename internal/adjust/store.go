package adjust

import (
	"context"
	"sync"
	"time"

	"chartscope/internal/logger"
	"chartscope/internal/pkg/clock"
	"chartscope/internal/series"
)

// ColorSaver 持久化特征颜色。保存失败只记日志，不影响内存状态。
type ColorSaver interface {
	SaveColors(ctx context.Context, colors map[string]string) error
}

// Adjustment 一条序列渲染前套用的缩放与偏移。
type Adjustment struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// Settings 某条序列最终的渲染参数。
type Settings struct {
	Color  string  `json:"color"`
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// Update 一次局部更新；nil 字段表示不变。
type Update struct {
	Color  *string
	Scale  *float64
	Offset *float64
}

// DefaultPalette 未被用户指定颜色的序列按申领顺序从这里取色。
var DefaultPalette = []string{
	"#2962ff", "#e91e63", "#00bfa5", "#ff6d00",
	"#6200ea", "#00c853", "#ffab00", "#d50000",
	"#0091ea", "#aa00ff", "#aeea00", "#c51162",
}

// StoreConfig Store 的构造参数。
type StoreConfig struct {
	Palette      []string
	SaveDebounce time.Duration
	Clock        clock.Clock
	Saver        ColorSaver
}

// Store 按需求解每条序列的 {color, scale, offset}。
//
// 颜色按序列名全局持久化；scale/offset 只在 (instrument, series) 粒度
// 的内存桶里存活，切换 instrument 后回落到由该 instrument 价格区间
// 推导的默认值。桶的 key 是显式传入的 instrument 参数，不依赖任何
// 环境态。
type Store struct {
	mu sync.Mutex

	palette      []string
	durable      map[string]string // 持久化颜色，按序列名
	session      map[string]string // 本会话临时分配的颜色
	sessionOrder []string          // 分配顺序，保证取色确定性
	overrides    map[string]map[string]Adjustment
	barStats     map[string]*series.BarStats

	saveDebounce time.Duration
	clock        clock.Clock
	saver        ColorSaver
	saveTimer    clock.Timer
	dirty        bool
}

// NewStore 创建 Store。
func NewStore(cfg StoreConfig) *Store {
	palette := cfg.Palette
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	debounce := cfg.SaveDebounce
	if debounce <= 0 {
		debounce = 400 * time.Millisecond
	}
	return &Store{
		palette:      palette,
		durable:      make(map[string]string),
		session:      make(map[string]string),
		overrides:    make(map[string]map[string]Adjustment),
		barStats:     make(map[string]*series.BarStats),
		saveDebounce: debounce,
		clock:        clk,
		saver:        cfg.Saver,
	}
}

// LoadColors 以启动时读到的持久化颜色覆盖当前 durable 表。
func (s *Store) LoadColors(colors map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, color := range colors {
		if name == "" || color == "" {
			continue
		}
		s.durable[name] = color
	}
}

// Color 解析序列颜色：持久化值 → 会话已分配值 → 调色板下一个未用色。
func (s *Store) Color(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.colorLocked(name)
}

func (s *Store) colorLocked(name string) string {
	if c, ok := s.durable[name]; ok {
		return c
	}
	if c, ok := s.session[name]; ok {
		return c
	}
	c := s.palette[len(s.sessionOrder)%len(s.palette)]
	s.session[name] = c
	s.sessionOrder = append(s.sessionOrder, name)
	return c
}

// SetBarStats 记录某 instrument 当前加载的价格极值；stats 为 nil
// 表示该 instrument 当前无 K 线。
func (s *Store) SetBarStats(instrument string, stats *series.BarStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stats == nil {
		delete(s.barStats, instrument)
		return
	}
	cp := *stats
	s.barStats[instrument] = &cp
}

// Defaults 由价格区间推导叠加序列的默认缩放：scale=span/2，
// offset=区间中点，使单位方差的特征大致占据与价格相同的纵向带。
// 无 K 线时回落到 {1, 0}。
func (s *Store) Defaults(instrument string) Adjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultsLocked(instrument)
}

func (s *Store) defaultsLocked(instrument string) Adjustment {
	stats, ok := s.barStats[instrument]
	if !ok || stats == nil {
		return Adjustment{Scale: 1, Offset: 0}
	}
	scale := stats.Span() / 2
	if scale <= 0 {
		scale = 1
	}
	return Adjustment{Scale: scale, Offset: stats.Mid()}
}

// Settings 合并 instrument 级覆盖与计算默认值；颜色独立解析。
func (s *Store) Settings(instrument, name string) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	adj := s.defaultsLocked(instrument)
	if bucket, ok := s.overrides[instrument]; ok {
		if ov, ok := bucket[name]; ok {
			adj = ov
		}
	}
	return Settings{Color: s.colorLocked(name), Scale: adj.Scale, Offset: adj.Offset}
}

// Apply 接收一次更新：颜色进持久化表并触发防抖保存；scale/offset
// 只写入 instrument 级内存桶（懒创建），不跨 instrument 持久化。
func (s *Store) Apply(instrument, name string, upd Update) Settings {
	s.mu.Lock()
	if upd.Color != nil && *upd.Color != "" {
		s.durable[name] = *upd.Color
		s.scheduleSaveLocked()
	}
	if upd.Scale != nil || upd.Offset != nil {
		cur := s.defaultsLocked(instrument)
		bucket, ok := s.overrides[instrument]
		if !ok {
			bucket = make(map[string]Adjustment)
			s.overrides[instrument] = bucket
		}
		if ov, ok := bucket[name]; ok {
			cur = ov
		}
		if upd.Scale != nil {
			cur.Scale = *upd.Scale
		}
		if upd.Offset != nil {
			cur.Offset = *upd.Offset
		}
		bucket[name] = cur
	}
	s.mu.Unlock()
	return s.Settings(instrument, name)
}

// Rescale 把 scale 重置回 instrument 默认值，offset 保持不变。幂等。
func (s *Store) Rescale(instrument, name string) Settings {
	s.mu.Lock()
	def := s.defaultsLocked(instrument)
	if bucket, ok := s.overrides[instrument]; ok {
		if ov, ok := bucket[name]; ok {
			ov.Scale = def.Scale
			bucket[name] = ov
		}
	}
	s.mu.Unlock()
	return s.Settings(instrument, name)
}

// Reset 删除该 (instrument, series) 的覆盖，scale/offset 双双回落到
// 默认值。幂等。
func (s *Store) Reset(instrument, name string) Settings {
	s.mu.Lock()
	if bucket, ok := s.overrides[instrument]; ok {
		delete(bucket, name)
	}
	s.mu.Unlock()
	return s.Settings(instrument, name)
}

// ClearOverrides 清掉某 instrument 的全部 scale/offset 覆盖，后续
// 查询全部回落到计算默认值。持久化颜色不受影响。
func (s *Store) ClearOverrides(instrument string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, instrument)
}

// Colors 返回持久化颜色表的拷贝。
func (s *Store) Colors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.durable))
	for k, v := range s.durable {
		out[k] = v
	}
	return out
}

// scheduleSaveLocked 合并短时间内的多次颜色改动，窗口结束后写一次。
func (s *Store) scheduleSaveLocked() {
	s.dirty = true
	if s.saver == nil {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Reset(s.saveDebounce)
		return
	}
	s.saveTimer = s.clock.AfterFunc(s.saveDebounce, func() {
		s.Flush(context.Background())
	})
}

// Flush 立即把持久化颜色写给 saver。失败只告警：界面状态以内存为准，
// 永远不因持久化阻塞交互。
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	if !s.dirty || s.saver == nil {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	colors := make(map[string]string, len(s.durable))
	for k, v := range s.durable {
		colors[k] = v
	}
	saver := s.saver
	s.mu.Unlock()

	if err := saver.SaveColors(ctx, colors); err != nil {
		logger.Warnf("特征颜色持久化失败（内存状态不受影响）: %v", err)
	}
}
