// Package diag 把当前视图汇总成人类可读的诊断表格，供 -inspect
// 一次性巡检和 /diagnostics 接口使用。
package diag

import (
	"fmt"
	"strings"

	"chartscope/internal/dashboard"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ViewTable 渲染一次加载周期的巡检表：每条叠加序列一行，含统计量、
// 缺失占比、缺口标记数与当前调整参数；末尾附面板错误。
func ViewTable(view *dashboard.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "instrument=%s  区间=%s~%s  周期=%s\n",
		view.Instrument, view.From, view.To, view.CycleID)
	if view.BarStats != nil {
		fmt.Fprintf(&b, "价格窗口 min=%.4f max=%.4f  K线=%d  价格缺口标记=%d\n",
			view.BarStats.Min, view.BarStats.Max, len(view.Candles), len(view.PriceMarkers))
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"序列", "类型", "颜色", "缺失占比", "标记", "scale", "offset", "min", "max", "first"})
	for _, ov := range view.Overlays {
		t.AppendRow(table.Row{
			ov.Name,
			ov.Kind,
			ov.Color,
			fmt.Sprintf("%.1f%%", ov.MissingRatio*100),
			len(ov.Markers),
			fmt.Sprintf("%.4f", ov.Scale),
			fmt.Sprintf("%.4f", ov.Offset),
			fmtPtr(ov.Stats.Min),
			fmtPtr(ov.Stats.Max),
			fmtPtr(ov.Stats.First),
		})
	}
	b.WriteString(t.Render())
	b.WriteByte('\n')

	for panel, msg := range view.Errors {
		fmt.Fprintf(&b, "[%s] %s\n", panel, msg)
	}
	return b.String()
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}
