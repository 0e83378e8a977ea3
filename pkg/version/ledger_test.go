package version

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerFirstVersion(t *testing.T) {
	ledger := NewLedger(func(scope Scope) (int64, error) {
		return 0, nil
	})

	next, err := ledger.Next(Scope{FileID: "file_1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestLedgerIncrement(t *testing.T) {
	ledger := NewLedger(func(scope Scope) (int64, error) {
		return 7, nil
	})

	next, err := ledger.Next(Scope{FileID: "file_1", QualityVersion: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(8), next)
}

func TestLedgerScopeIsolation(t *testing.T) {
	// 不同作用域的版本互不影响
	maxByScope := map[Scope]int64{
		{FileID: "file_1", QualityVersion: 1}: 3,
		{FileID: "file_1", QualityVersion: 2}: 0,
	}
	ledger := NewLedger(func(scope Scope) (int64, error) {
		return maxByScope[scope], nil
	})

	next, err := ledger.Next(Scope{FileID: "file_1", QualityVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)

	next, err = ledger.Next(Scope{FileID: "file_1", QualityVersion: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestLedgerError(t *testing.T) {
	ledger := NewLedger(func(scope Scope) (int64, error) {
		return 0, errors.New("db gone")
	})

	_, err := ledger.Next(Scope{FileID: "file_1"})
	assert.Error(t, err)
}
