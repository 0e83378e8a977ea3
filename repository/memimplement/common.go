package memimplement

import (
	"github.com/game-diot/Data-visualization-applications-sub000/model"
)

// slicePage 内存切片分页, pager 为空表示不分页
func slicePage[T any](items []T, pager *model.Pager) []T {
	if pager == nil || pager.Limit <= 0 {
		return items
	}
	if pager.Offset >= len(items) {
		return []T{}
	}
	end := pager.Offset + pager.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[pager.Offset:end]
}
