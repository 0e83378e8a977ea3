package repository

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// ErrDuplicate 唯一索引冲突, 版本账本靠它发现并发写入
var ErrDuplicate = errors.New("duplicate key")

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
