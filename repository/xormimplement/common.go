package xormimplement

import (
	"xorm.io/xorm"

	"github.com/game-diot/Data-visualization-applications-sub000/model"
)

// applyPager 分页查询, pager 为空表示不分页
func applyPager(session xorm.Interface, pager *model.Pager) {
	if pager != nil && pager.Limit > 0 {
		session.Limit(pager.Limit, pager.Offset)
	}
}
