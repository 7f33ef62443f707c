package dashboard

import (
	"time"

	"chartscope/internal/adjust"
	"chartscope/internal/dataapi"
	"chartscope/internal/series"
)

// RenderPoint 交给图表面的最小点契约：时间 + 可空值。
type RenderPoint struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// RenderSeries 一条可直接交给图表面的序列：归一化值已套用
// {scale, offset}，缺失点保持 nil（图表据此断线）。
type RenderSeries struct {
	Name         string             `json:"name"`
	Kind         string             `json:"kind"` // feature | index
	Color        string             `json:"color"`
	Width        float64            `json:"width"`
	Scale        float64            `json:"scale"`
	Offset       float64            `json:"offset"`
	Points       []RenderPoint      `json:"points"`
	Markers      []series.GapMarker `json:"markers"`
	MissingRatio float64            `json:"missing_ratio"`
	Stats        series.Stats       `json:"stats"`
}

// Candle 价格面板的单日 K 线。
type Candle struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// View 一次加载周期的完整产物。Errors 按面板隔离：bars/features/
// indexes 互不阻塞，谁失败谁缺席，其余照常渲染。
type View struct {
	CycleID      string                 `json:"cycle_id"`
	Instrument   string                 `json:"instrument"`
	From         string                 `json:"from"`
	To           string                 `json:"to"`
	Meta         dataapi.InstrumentMeta `json:"meta"`
	Candles      []Candle               `json:"candles"`
	PriceMarkers []series.GapMarker     `json:"price_markers"`
	Overlays     []RenderSeries         `json:"overlays"`
	BarStats     *series.BarStats       `json:"bar_stats,omitempty"`
	Errors       map[string]string      `json:"errors,omitempty"`
	Empty        bool                   `json:"empty"`
	LoadedAt     time.Time              `json:"loaded_at"`
}

const (
	panelBars     = "bars"
	panelFeatures = "features"
	panelIndexes  = "indexes"
	panelMeta     = "meta"

	priceMarkerColor = "#787b86"
	overlayWidth     = 1.5
)

// applyAdjustment 把归一化序列映射到渲染坐标：v*scale+offset，
// 缺失点原样传递。调整永远发生在归一化之后，不回写归一化结果。
func applyAdjustment(normalized []series.NormalizedPoint, adj adjust.Settings) []RenderPoint {
	out := make([]RenderPoint, len(normalized))
	for i, np := range normalized {
		rp := RenderPoint{Time: np.Time}
		if np.Value != nil {
			v := *np.Value*adj.Scale + adj.Offset
			rp.Value = &v
		}
		out[i] = rp
	}
	return out
}
