package series

// GapMarker 渲染指令：在缺失段的边界处画一个标记。它不是数据点。
type GapMarker struct {
	Time     string  `json:"time"`
	Position string  `json:"position"`
	Shape    string  `json:"shape"`
	Color    string  `json:"color"`
	Size     float64 `json:"size"`
}

const (
	MarkerPositionAbove = "aboveBar"
	MarkerPositionBelow = "belowBar"
	MarkerShapeCircle   = "circle"

	defaultMarkerSize = 1
)

// ScanGaps 对清洗后的序列做一次左到右扫描，为每个两侧都有有效观测的
// 最大缺失段产出一对标记：一个落在缺失段前最后一个有效点，一个落在
// 缺失段后第一个有效点。标记永远成对出现；序列开头或结尾的开放缺失
// 段没有可以锚定的边界点，不产出标记。
func ScanGaps(cleaned []CleanedPoint, color, position string) []GapMarker {
	var markers []GapMarker
	var lastValid *CleanedPoint
	inGap := false
	for i := range cleaned {
		p := cleaned[i]
		if p.Valid() {
			if inGap && lastValid != nil {
				markers = append(markers,
					newMarker(lastValid.Date, color, position),
					newMarker(p.Date, color, position),
				)
			}
			inGap = false
			lastValid = &cleaned[i]
			continue
		}
		if lastValid != nil {
			inGap = true
		}
	}
	return markers
}

func newMarker(date, color, position string) GapMarker {
	if position == "" {
		position = MarkerPositionAbove
	}
	return GapMarker{
		Time:     date,
		Position: position,
		Shape:    MarkerShapeCircle,
		Color:    color,
		Size:     defaultMarkerSize,
	}
}

// MissingRatio 序列中无效观测的占比；空序列返回 0。
func MissingRatio(cleaned []CleanedPoint) float64 {
	if len(cleaned) == 0 {
		return 0
	}
	missing := 0
	for _, p := range cleaned {
		if !p.Valid() {
			missing++
		}
	}
	return float64(missing) / float64(len(cleaned))
}
