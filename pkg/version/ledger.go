package version

import (
	"github.com/pkg/errors"
)

// Scope 版本账本的作用域
// 质量: FileID; 清洗: FileID+QualityVersion; 分析: 三元组
type Scope struct {
	FileID          string
	QualityVersion  int64
	CleaningVersion int64
}

// MaxVersionFunc 返回作用域内成功报告的最大版本号, 无报告时为 0
type MaxVersionFunc func(scope Scope) (int64, error)

// Ledger 按作用域分配下一个版本号
// 版本号只被成功消费, 失败不占号; 并发分配由报告表的唯一索引兜底
type Ledger struct {
	maxVersion MaxVersionFunc
}

func NewLedger(maxVersion MaxVersionFunc) *Ledger {
	return &Ledger{maxVersion: maxVersion}
}

// Next 计算作用域内下一个版本号, 首个版本为 1
func (l *Ledger) Next(scope Scope) (int64, error) {
	max, err := l.maxVersion(scope)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return max + 1, nil
}
