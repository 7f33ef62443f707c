package series

// RawPoint 上游数据边界返回的单个观测：日期 + 可空数值。
// Value 为 nil 表示该日无观测，而不是 0。
type RawPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// CleanedPoint 清洗后的观测：非有限数值（NaN/Inf）已折叠为 nil。
// 与输入 RawPoint 序列等长、同序，不丢点。
type CleanedPoint struct {
	Date  string
	Value *float64
}

// Valid 该点是否有可用观测。
func (p CleanedPoint) Valid() bool { return p.Value != nil }

// NormalizedPoint 归一化后的观测。Value 为 nil 时表示"此处无样本"，
// 渲染端据此断线，而不是画 0。
type NormalizedPoint struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value,omitempty"`
}

// Stats 单条序列的统计摘要；序列没有任何有效观测时全部为 nil。
type Stats struct {
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	First  *float64 `json:"first"`
	MaxAbs *float64 `json:"max_abs"`
	Span   *float64 `json:"span"`
}

// BarStats 当前已加载价格 K 线的极值，用于推导叠加序列的默认缩放。
type BarStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span 价格区间宽度。
func (b BarStats) Span() float64 { return b.Max - b.Min }

// Mid 价格区间中点。
func (b BarStats) Mid() float64 { return (b.Max + b.Min) / 2 }

func ptr(v float64) *float64 { return &v }
