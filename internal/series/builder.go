package series

import "math"

// Built 一条序列经过清洗与归一化后的完整产物。
type Built struct {
	Name       string
	Cleaned    []CleanedPoint
	Normalized []NormalizedPoint
	Stats      Stats
}

// Build 把原始观测序列转换为可叠加绘制的归一化序列。
//
// 归一化公式：(value - first) / maxAbs，其中 first 是最早的有效观测，
// maxAbs 是所有有效观测相对 first 的最大绝对偏差。只有一个有效点时
// maxAbs 为 0，分母退化为 1，序列画成 0 值平线；完全空的序列产出
// 全空的 Normalized 与全 nil 的 Stats，调用方按"无可绘制内容"处理。
// 本阶段不会失败，所有异常输入都折叠为安全默认值。
func Build(name string, points []RawPoint) Built {
	cleaned := Clean(points)
	stats := Summarize(cleaned)
	return Built{
		Name:       name,
		Cleaned:    cleaned,
		Normalized: Normalize(cleaned, stats),
		Stats:      stats,
	}
}

// Clean 把每个值折叠为有限数或 nil；不丢点、不改顺序。
func Clean(points []RawPoint) []CleanedPoint {
	out := make([]CleanedPoint, len(points))
	for i, p := range points {
		cp := CleanedPoint{Date: p.Date}
		if p.Value != nil {
			v := *p.Value
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				cp.Value = ptr(v)
			}
		}
		out[i] = cp
	}
	return out
}

// Summarize 扫描有效观测，计算 min/max/first/maxAbs/span。
// first 是最早"有值"的点，不一定是数组首元素。
func Summarize(cleaned []CleanedPoint) Stats {
	var stats Stats
	for _, p := range cleaned {
		if p.Value == nil {
			continue
		}
		v := *p.Value
		if stats.First == nil {
			stats.First = ptr(v)
		}
		if stats.Min == nil || v < *stats.Min {
			stats.Min = ptr(v)
		}
		if stats.Max == nil || v > *stats.Max {
			stats.Max = ptr(v)
		}
		dev := math.Abs(v - *stats.First)
		if stats.MaxAbs == nil || dev > *stats.MaxAbs {
			stats.MaxAbs = ptr(dev)
		}
	}
	if stats.Min != nil && stats.Max != nil {
		stats.Span = ptr(*stats.Max - *stats.Min)
	}
	return stats
}

// Normalize 按给定统计量产出归一化序列。无效点产出 nil 值。
// 归一化只依赖清洗后的序列本身，与任何视觉调整无关。
func Normalize(cleaned []CleanedPoint, stats Stats) []NormalizedPoint {
	out := make([]NormalizedPoint, len(cleaned))
	denom := 1.0
	if stats.MaxAbs != nil && *stats.MaxAbs != 0 {
		denom = *stats.MaxAbs
	}
	for i, p := range cleaned {
		np := NormalizedPoint{Time: p.Date}
		if p.Value != nil && stats.First != nil {
			np.Value = ptr((*p.Value - *stats.First) / denom)
		}
		out[i] = np
	}
	return out
}
