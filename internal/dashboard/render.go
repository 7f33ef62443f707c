package dashboard

import (
	"bytes"
	"fmt"

	"chartscope/internal/series"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML 把视图渲染成独立的 echarts HTML 页面：K 线为底，
// 归一化叠加线与缺口标记散点叠在同一 x 轴上。
func RenderHTML(view *View) ([]byte, error) {
	if view == nil {
		return nil, fmt.Errorf("尚无可渲染的视图")
	}

	dates := make([]string, 0, len(view.Candles))
	klineData := make([]opts.KlineData, 0, len(view.Candles))
	closeByDate := make(map[string]float64, len(view.Candles))
	for _, c := range view.Candles {
		dates = append(dates, c.Date)
		klineData = append(klineData, opts.KlineData{Value: candleValue(c)})
		if c.Close != nil {
			closeByDate[c.Date] = *c.Close
		}
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    view.Instrument,
			Subtitle: fmt.Sprintf("%s ~ %s", view.From, view.To),
		}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "slider",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	kline.SetXAxis(dates).AddSeries("price", klineData)

	if markers := markerScatter(dates, view.PriceMarkers, closeByDate, priceMarkerColor); markers != nil {
		kline.Overlap(markers)
	}

	for _, ov := range view.Overlays {
		line := charts.NewLine()
		lineData := make([]opts.LineData, 0, len(ov.Points))
		valueByDate := make(map[string]float64, len(ov.Points))
		for _, p := range ov.Points {
			if p.Value == nil {
				// nil 值序列化为 null，echarts 据此断线。
				lineData = append(lineData, opts.LineData{Value: nil})
				continue
			}
			lineData = append(lineData, opts.LineData{Value: *p.Value})
			valueByDate[p.Time] = *p.Value
		}
		line.SetXAxis(dates).AddSeries(ov.Name, lineData,
			charts.WithLineStyleOpts(opts.LineStyle{Color: ov.Color, Width: float32(ov.Width)}),
			charts.WithLineChartOpts(opts.LineChart{Symbol: "none"}),
		)
		kline.Overlap(line)
		if markers := markerScatter(dates, ov.Markers, valueByDate, ov.Color); markers != nil {
			kline.Overlap(markers)
		}
	}

	var buf bytes.Buffer
	if err := kline.Render(&buf); err != nil {
		return nil, fmt.Errorf("渲染图表失败: %w", err)
	}
	return buf.Bytes(), nil
}

// markerScatter 把缺口标记铺成一条与 x 轴对齐的散点序列：标记日落
// 在边界点的序列值上，其余日置 null。没有任何标记返回 nil。
func markerScatter(dates []string, markers []series.GapMarker, valueByDate map[string]float64, color string) *charts.Scatter {
	if len(markers) == 0 {
		return nil
	}
	marked := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		marked[m.Time] = struct{}{}
	}
	data := make([]opts.ScatterData, 0, len(dates))
	hit := false
	for _, d := range dates {
		if _, ok := marked[d]; !ok {
			data = append(data, opts.ScatterData{Value: nil})
			continue
		}
		v, ok := valueByDate[d]
		if !ok {
			// 标记只锚定在有效边界点，缺值说明标记属于别的面板。
			data = append(data, opts.ScatterData{Value: nil})
			continue
		}
		data = append(data, opts.ScatterData{Value: v, SymbolSize: 10, Symbol: "circle"})
		hit = true
	}
	if !hit {
		return nil
	}
	scatter := charts.NewScatter()
	scatter.SetXAxis(dates).AddSeries("gaps", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
	)
	return scatter
}

func candleValue(c Candle) [4]float64 {
	var v [4]float64
	if c.Open != nil {
		v[0] = *c.Open
	}
	if c.Close != nil {
		v[1] = *c.Close
	}
	if c.Low != nil {
		v[2] = *c.Low
	}
	if c.High != nil {
		v[3] = *c.High
	}
	return v
}
