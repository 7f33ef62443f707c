package clock

import "time"

// Clock 抽象定时能力；防抖逻辑统一经由它调度，测试注入假时钟后
// 不需要真实等待。
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer 可停止、可重置的定时器句柄。
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

type realClock struct{}

// Real 返回基于 time 包的时钟。
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool                 { return r.t.Stop() }
func (r realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
