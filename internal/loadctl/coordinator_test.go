package loadctl

import (
	"context"
	"sync"
	"testing"
	"time"

	"chartscope/internal/pkg/clock"
)

// recordingFetcher 记录每次被调度到的周期，完成时机由用例控制。
type recordingFetcher struct {
	mu     sync.Mutex
	cycles []Cycle
}

func (f *recordingFetcher) fetch(_ context.Context, cycle Cycle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = append(f.cycles, cycle)
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cycles)
}

func (f *recordingFetcher) last() Cycle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles[len(f.cycles)-1]
}

func newTestCoordinator(t *testing.T) (*Coordinator, *recordingFetcher, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake()
	f := &recordingFetcher{}
	c := New(context.Background(), Config{
		Debounce: 150 * time.Millisecond,
		Clock:    clk,
		Fetch:    f.fetch,
	})
	return c, f, clk
}

// TestDebounceCoalescesTriggers 防抖窗口内的连续触发只发起一次拉取。
func TestDebounceCoalescesTriggers(t *testing.T) {
	c, f, clk := newTestCoordinator(t)
	c.Trigger()
	clk.Advance(100 * time.Millisecond)
	c.Trigger()
	clk.Advance(100 * time.Millisecond)
	if f.count() != 0 {
		t.Fatalf("窗口被重置后不应已发起拉取, 实际=%d", f.count())
	}
	clk.Advance(100 * time.Millisecond)
	if f.count() != 1 {
		t.Fatalf("窗口结束应恰好发起一次拉取, 实际=%d", f.count())
	}
}

// TestPendingCoalescesMidFlight 在途期间的多次触发合并为恰好一次补拉。
func TestPendingCoalescesMidFlight(t *testing.T) {
	c, f, clk := newTestCoordinator(t)
	c.Trigger()
	clk.Advance(200 * time.Millisecond)
	if f.count() != 1 {
		t.Fatalf("应已发起首次拉取, 实际=%d", f.count())
	}

	// 拉取未完成时连续两次变更选区。
	c.Trigger()
	c.Trigger()
	clk.Advance(time.Second)
	if f.count() != 1 {
		t.Fatalf("在途期间不应并发第二次拉取, 实际=%d", f.count())
	}

	c.Complete(f.last())
	clk.Advance(200 * time.Millisecond)
	if f.count() != 2 {
		t.Fatalf("完成后应恰好补一次拉取, 实际=%d", f.count())
	}
}

// TestGenerationMonotonic 周期代号单调递增，旧周期不再是最新。
func TestGenerationMonotonic(t *testing.T) {
	c, f, clk := newTestCoordinator(t)
	c.Trigger()
	clk.Advance(200 * time.Millisecond)
	first := f.last()
	c.Complete(first)

	c.Trigger()
	clk.Advance(200 * time.Millisecond)
	second := f.last()
	if second.Gen <= first.Gen {
		t.Fatalf("gen 应单调递增, 实际=%d -> %d", first.Gen, second.Gen)
	}
	if c.IsCurrent(first) {
		t.Fatalf("旧周期不应仍是最新")
	}
	if !c.IsCurrent(second) {
		t.Fatalf("新周期应是最新")
	}
}

// TestStaleCompleteIgnored 过期周期的完成回调不触碰状态机。
func TestStaleCompleteIgnored(t *testing.T) {
	c, f, clk := newTestCoordinator(t)
	c.Trigger()
	clk.Advance(200 * time.Millisecond)
	first := f.last()
	c.Complete(first)

	c.Trigger()
	clk.Advance(200 * time.Millisecond)
	if !c.Loading() {
		t.Fatalf("第二次拉取应在途")
	}
	// 网络晚到的首个周期完成回调。
	c.Complete(first)
	if !c.Loading() {
		t.Fatalf("过期完成回调不应把状态机拉回 idle")
	}
}

// TestNoFetchAfterCancel ctx 取消后不再发起新拉取。
func TestNoFetchAfterCancel(t *testing.T) {
	clk := clock.NewFake()
	f := &recordingFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	c := New(ctx, Config{Debounce: 150 * time.Millisecond, Clock: clk, Fetch: f.fetch})

	c.Trigger()
	cancel()
	clk.Advance(time.Second)
	if f.count() != 0 {
		t.Fatalf("取消后不应发起拉取, 实际=%d", f.count())
	}
}
