package catalog

import (
	"strings"
	"sync"
)

// Item 目录中的一个可选条目。
type Item struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Catalog 持有一类可发现对象（ticker/特征/指数）的全集，支持子串
// 增量过滤与选择状态跟踪。选择顺序被保留：叠加序列的取色顺序由
// 勾选顺序决定，必须可复现。
type Catalog struct {
	mu       sync.RWMutex
	items    []Item
	filter   string
	selected []string
}

// New 创建空目录。
func New() *Catalog { return &Catalog{} }

// SetItems 全量替换条目，清掉指向已消失条目的选择。
func (c *Catalog) SetItems(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]Item(nil), items...)
	known := make(map[string]struct{}, len(items))
	for _, it := range items {
		known[it.ID] = struct{}{}
	}
	kept := c.selected[:0]
	for _, id := range c.selected {
		if _, ok := known[id]; ok {
			kept = append(kept, id)
		}
	}
	c.selected = kept
}

// SetFilter 更新过滤文本（大小写不敏感子串匹配）。
func (c *Catalog) SetFilter(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = strings.ToLower(strings.TrimSpace(q))
}

// Items 返回过滤后的条目快照。
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if c.filter != "" &&
			!strings.Contains(strings.ToLower(it.ID), c.filter) &&
			!strings.Contains(strings.ToLower(it.Label), c.filter) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Len 条目总数（不受过滤影响）。
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Has 是否存在指定条目。
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(id) >= 0
}

func (c *Catalog) indexOf(id string) int {
	for i, it := range c.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Select 排他选择：清空既有选择只留 id。未知 id 返回 false。
func (c *Catalog) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		return false
	}
	c.selected = []string{id}
	return true
}

// Toggle 勾选/取消勾选 id，保持其余选择不变。返回操作后是否选中。
func (c *Catalog) Toggle(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		return false
	}
	for i, sel := range c.selected {
		if sel == id {
			c.selected = append(c.selected[:i], c.selected[i+1:]...)
			return false
		}
	}
	c.selected = append(c.selected, id)
	return true
}

// Selected 返回选中 id 的快照，保持勾选顺序。
func (c *Catalog) Selected() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.selected...)
}

// Current 单选目录的当前选择；未选返回空串。
func (c *Catalog) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.selected) == 0 {
		return ""
	}
	return c.selected[0]
}

// ClearSelection 清空选择。
func (c *Catalog) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}
