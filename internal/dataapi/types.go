package dataapi

import (
	"fmt"

	"chartscope/internal/series"
)

// Ticker 可选 instrument 条目。
type Ticker struct {
	Ticker string `json:"ticker"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Type   string `json:"type"`
}

// Index 可叠加的指数条目（市场指数或行业合成指数）。
type Index struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// InstrumentMeta instrument 的静态元信息。
type InstrumentMeta struct {
	Ticker      string `json:"ticker"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	SectorIndex string `json:"sector_index,omitempty"`
}

// Feature 特征目录条目。
type Feature struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	DType  string `json:"dtype,omitempty"`
}

// Bar 单日 OHLCV。字段可空：某日可能只有部分字段缺失。
type Bar struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// BarsResult /bars 的响应。
type BarsResult struct {
	Ticker string   `json:"ticker"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Bars   []Bar    `json:"bars"`
	Meta   BarsMeta `json:"meta"`
}

// BarsMeta /bars 的缺失信息。
type BarsMeta struct {
	MissingDates []string           `json:"missing_dates"`
	MissingRatio map[string]float64 `json:"missing_ratio"`
	Source       string             `json:"source"`
}

// FeaturesResult /features 数据请求的响应。
type FeaturesResult struct {
	Ticker   string                       `json:"ticker"`
	From     string                       `json:"from"`
	To       string                       `json:"to"`
	Features map[string][]series.RawPoint `json:"features"`
	Meta     FeaturesMeta                 `json:"meta"`
}

// FeaturesMeta 每个特征的缺失占比与来源视图。
type FeaturesMeta struct {
	MissingRatio map[string]float64 `json:"missing_ratio"`
	Sources      map[string]string  `json:"sources"`
	MissingDates []string           `json:"missing_dates"`
}

// IndexSeriesResult /index-series 的响应；指数序列已在服务端按
// instrument 首个收盘价折算到价格坐标系。
type IndexSeriesResult struct {
	Instrument string                       `json:"instrument"`
	From       string                       `json:"from"`
	To         string                       `json:"to"`
	BaseDate   string                       `json:"base_date"`
	Indexes    map[string][]series.RawPoint `json:"indexes"`
}

// FeatureSetting 持久化的单条特征外观（目前只有颜色；scale/offset
// 从不上送服务端）。
type FeatureSetting struct {
	Color string `json:"color"`
}

// Health /health 的响应。
type Health struct {
	Status   string `json:"status"`
	DataRoot string `json:"data_root"`
}

// APIError 携带服务端 {error, details} 载荷的失败响应。
type APIError struct {
	StatusCode int
	Message    string
	Details    any
}

func (e *APIError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("API %d: %s (%v)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("API %d: %s", e.StatusCode, e.Message)
}
