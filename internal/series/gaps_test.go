package series

import "testing"

func cleanedOf(points ...RawPoint) []CleanedPoint { return Clean(points) }

// TestScanGapsBracketsRun 缺失段两侧的有效点各得一个标记。
func TestScanGapsBracketsRun(t *testing.T) {
	markers := ScanGaps(cleanedOf(
		rp("2024-01-01", 10),
		rpNil("2024-01-02"),
		rpNil("2024-01-03"),
		rp("2024-01-04", 12),
	), "#26a69a", MarkerPositionAbove)
	if len(markers) != 2 {
		t.Fatalf("单缺失段应产出 2 个标记, 实际=%d", len(markers))
	}
	if markers[0].Time != "2024-01-01" || markers[1].Time != "2024-01-04" {
		t.Fatalf("标记应落在 2024-01-01/2024-01-04, 实际=%s/%s", markers[0].Time, markers[1].Time)
	}
	if markers[0].Color != "#26a69a" || markers[0].Shape != MarkerShapeCircle {
		t.Fatalf("标记应携带序列颜色与形状, 实际=%+v", markers[0])
	}
}

// TestScanGapsAlwaysPaired 任意输入标记数都是偶数。
func TestScanGapsAlwaysPaired(t *testing.T) {
	inputs := [][]CleanedPoint{
		cleanedOf(rp("a", 1), rpNil("b"), rp("c", 2), rpNil("d"), rpNil("e"), rp("f", 3)),
		cleanedOf(rpNil("a"), rp("b", 1), rpNil("c"), rp("d", 2)),
		cleanedOf(rp("a", 1), rpNil("b")),
		cleanedOf(rpNil("a"), rpNil("b")),
		nil,
	}
	for i, in := range inputs {
		markers := ScanGaps(in, "#fff", MarkerPositionBelow)
		if len(markers)%2 != 0 {
			t.Fatalf("用例 %d: 标记数应为偶数, 实际=%d", i, len(markers))
		}
	}
}

// TestScanGapsNoGaps 无缺失序列零标记。
func TestScanGapsNoGaps(t *testing.T) {
	markers := ScanGaps(cleanedOf(rp("a", 1), rp("b", 2), rp("c", 3)), "#fff", "")
	if len(markers) != 0 {
		t.Fatalf("无缺失序列不应有标记, 实际=%d", len(markers))
	}
}

// TestScanGapsOpenEnded 开头/结尾的开放缺失段不产出标记。
func TestScanGapsOpenEnded(t *testing.T) {
	markers := ScanGaps(cleanedOf(
		rpNil("2024-01-01"),
		rpNil("2024-01-02"),
		rp("2024-01-03", 1),
		rp("2024-01-04", 2),
		rpNil("2024-01-05"),
	), "#fff", MarkerPositionAbove)
	if len(markers) != 0 {
		t.Fatalf("只有开放缺失段时不应有标记, 实际=%+v", markers)
	}
}

// TestScanGapsMultipleRuns 多个缺失段各自独立成对。
func TestScanGapsMultipleRuns(t *testing.T) {
	markers := ScanGaps(cleanedOf(
		rp("d1", 1),
		rpNil("d2"),
		rp("d3", 2),
		rp("d4", 3),
		rpNil("d5"),
		rpNil("d6"),
		rp("d7", 4),
	), "#fff", MarkerPositionAbove)
	if len(markers) != 4 {
		t.Fatalf("两个缺失段应产出 4 个标记, 实际=%d", len(markers))
	}
	want := []string{"d1", "d3", "d4", "d7"}
	for i, m := range markers {
		if m.Time != want[i] {
			t.Fatalf("标记 %d 应落在 %s, 实际=%s", i, want[i], m.Time)
		}
	}
}

// TestMissingRatio 缺失占比统计。
func TestMissingRatio(t *testing.T) {
	if r := MissingRatio(nil); r != 0 {
		t.Fatalf("空序列缺失占比应为 0, 实际=%v", r)
	}
	r := MissingRatio(cleanedOf(rp("a", 1), rpNil("b"), rpNil("c"), rp("d", 2)))
	if r != 0.5 {
		t.Fatalf("缺失占比应为 0.5, 实际=%v", r)
	}
}
