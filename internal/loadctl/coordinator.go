package loadctl

import (
	"context"
	"sync"
	"time"

	"chartscope/internal/logger"
	"chartscope/internal/pkg/clock"

	"github.com/google/uuid"
)

// Cycle 一次拉取周期的标识。Gen 单调递增，用于丢弃迟到的过期结果；
// ID 只用于日志关联。
type Cycle struct {
	Gen uint64
	ID  string
}

// Fetcher 执行一次完整拉取。实现方负责在结束时（无论成败）调用
// Coordinator.Complete(cycle)。
type Fetcher func(ctx context.Context, cycle Cycle)

// Coordinator 在 {idle, loading} 两态间调度拉取：
//
//   - idle 下的触发先进入防抖窗口，窗口结束才转 loading 并发起拉取；
//     窗口内的后续触发只是重置窗口。
//   - loading 下的触发只置 pending 标记，绝不并发第二次拉取。
//   - 完成回调把状态转回 idle；pending 置位时立刻重新进入调度，
//     最终恰好补一次反映最新选区的拉取。
//
// 同一看板实例任何时刻至多一个拉取在途，且没有触发会被静默吞掉。
type Coordinator struct {
	mu       sync.Mutex
	loading  bool
	pending  bool
	gen      uint64
	debounce time.Duration
	clock    clock.Clock
	timer    clock.Timer
	fetch    Fetcher
	ctx      context.Context
}

// Config Coordinator 的构造参数。
type Config struct {
	Debounce time.Duration
	Clock    clock.Clock
	Fetch    Fetcher
}

// New 创建 Coordinator；ctx 取消后不再发起新拉取。
func New(ctx context.Context, cfg Config) *Coordinator {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	return &Coordinator{
		debounce: debounce,
		clock:    clk,
		fetch:    cfg.Fetch,
		ctx:      ctx,
	}
}

// Trigger 选区或区间变化时调用。
func (c *Coordinator) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		c.pending = true
		return
	}
	c.scheduleLocked()
}

func (c *Coordinator) scheduleLocked() {
	if c.timer != nil {
		c.timer.Reset(c.debounce)
		return
	}
	c.timer = c.clock.AfterFunc(c.debounce, c.start)
}

func (c *Coordinator) start() {
	c.mu.Lock()
	if c.loading || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.gen++
	cycle := Cycle{Gen: c.gen, ID: uuid.NewString()}
	fetch := c.fetch
	c.mu.Unlock()

	// 定时器回调本身运行在独立 goroutine 里，这里同步执行拉取即可。
	logger.Debugf("load cycle %s (gen=%d) 开始", cycle.ID, cycle.Gen)
	fetch(c.ctx, cycle)
}

// Complete 拉取结束（成功或失败）时由 Fetcher 调用。
func (c *Coordinator) Complete(cycle Cycle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cycle.Gen != c.gen {
		// 迟到的历史周期，状态早已被后续周期接管。
		return
	}
	c.loading = false
	if c.pending {
		c.pending = false
		c.scheduleLocked()
	}
}

// IsCurrent 该周期是否仍是最新发起的周期。结果提交前必须检查，
// 过期周期的响应直接丢弃。
func (c *Coordinator) IsCurrent(cycle Cycle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cycle.Gen == c.gen
}

// Loading 当前是否有拉取在途。
func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}
