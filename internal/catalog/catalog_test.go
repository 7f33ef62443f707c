package catalog

import "testing"

func seeded() *Catalog {
	c := New()
	c.SetItems([]Item{
		{ID: "aapl", Label: "AAPL"},
		{ID: "msft", Label: "MSFT"},
		{ID: "amzn", Label: "AMZN"},
	})
	return c
}

// TestFilterSubstring 过滤是大小写不敏感的子串匹配。
func TestFilterSubstring(t *testing.T) {
	c := seeded()
	c.SetFilter("A")
	got := c.Items()
	if len(got) != 2 {
		t.Fatalf("过滤 'A' 应命中 aapl/amzn, 实际=%+v", got)
	}
	c.SetFilter("")
	if len(c.Items()) != 3 {
		t.Fatalf("清空过滤应返回全集, 实际=%d", len(c.Items()))
	}
}

// TestSelectExclusive 单选目录的排他选择。
func TestSelectExclusive(t *testing.T) {
	c := seeded()
	if !c.Select("aapl") {
		t.Fatalf("已知 id 选择应成功")
	}
	if c.Select("zzzz") {
		t.Fatalf("未知 id 选择应失败")
	}
	if c.Current() != "aapl" {
		t.Fatalf("失败的选择不应改动现状, 实际=%s", c.Current())
	}
	c.Select("msft")
	if got := c.Selected(); len(got) != 1 || got[0] != "msft" {
		t.Fatalf("排他选择应只留最新 id, 实际=%v", got)
	}
}

// TestToggleKeepsOrder 勾选顺序保留，取消不打乱其余顺序。
func TestToggleKeepsOrder(t *testing.T) {
	c := seeded()
	c.Toggle("msft")
	c.Toggle("aapl")
	c.Toggle("amzn")
	if got := c.Selected(); got[0] != "msft" || got[1] != "aapl" || got[2] != "amzn" {
		t.Fatalf("勾选顺序应保留, 实际=%v", got)
	}
	c.Toggle("aapl")
	if got := c.Selected(); len(got) != 2 || got[0] != "msft" || got[1] != "amzn" {
		t.Fatalf("取消勾选后剩余顺序应不变, 实际=%v", got)
	}
}

// TestSetItemsPrunesSelection 替换条目时清掉悬空选择。
func TestSetItemsPrunesSelection(t *testing.T) {
	c := seeded()
	c.Toggle("aapl")
	c.Toggle("msft")
	c.SetItems([]Item{{ID: "msft", Label: "MSFT"}})
	if got := c.Selected(); len(got) != 1 || got[0] != "msft" {
		t.Fatalf("已消失条目的选择应被清除, 实际=%v", got)
	}
}

// TestFilterDoesNotTouchSelection 过滤只影响可见条目，不影响选择。
func TestFilterDoesNotTouchSelection(t *testing.T) {
	c := seeded()
	c.Toggle("aapl")
	c.SetFilter("msft")
	if got := c.Selected(); len(got) != 1 || got[0] != "aapl" {
		t.Fatalf("过滤不应清除选择, 实际=%v", got)
	}
}
