package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	cperrors "github.com/chronosproxy/proxy/internal/errors"
)

func TestRecordSuccess(t *testing.T) {
	c := New()
	c.RecordSuccess(false)
	c.RecordSuccess(true)
	snap := c.Snapshot()
	require.Equal(t, int64(2), snap.QueriesTotal)
	require.Equal(t, int64(1), snap.QueriesTransformed)
	require.Equal(t, int64(0), snap.QueriesFailed)
}

func TestRecordFailure(t *testing.T) {
	c := New()
	c.RecordFailure(cperrors.WriteBlocked)
	c.RecordFailure(cperrors.WriteBlocked)
	c.RecordFailure(cperrors.MissingDateFilter)
	snap := c.Snapshot()
	require.Equal(t, int64(3), snap.QueriesTotal)
	require.Equal(t, int64(3), snap.QueriesFailed)
	require.Equal(t, int64(2), snap.FailedByKind[cperrors.WriteBlocked])
	require.Equal(t, int64(1), snap.FailedByKind[cperrors.MissingDateFilter])
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	c.RecordFailure(cperrors.WriteBlocked)
	snap := c.Snapshot()
	snap.FailedByKind[cperrors.WriteBlocked] = 99
	require.Equal(t, int64(1), c.Snapshot().FailedByKind[cperrors.WriteBlocked])
}

func TestCountersConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordSuccess(false)
		}()
	}
	wg.Wait()
	require.Equal(t, int64(100), c.Snapshot().QueriesTotal)
}
