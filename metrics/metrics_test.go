package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountersSnapshot(t *testing.T) {
	c := NewCounters()
	c.RecordSuccess(100*time.Millisecond, 50)
	c.RecordSuccess(200*time.Millisecond, 150)
	c.RecordFailure(50 * time.Millisecond)

	snap := c.Snapshot()
	require.Equal(t, int64(3), snap.Total)
	require.Equal(t, int64(2), snap.Success)
	require.Equal(t, int64(1), snap.Fail)
	require.Equal(t, int64(200), snap.Bytes)
	require.InDelta(t, 2.0/3.0, snap.SuccessRate, 0.001)
	require.Equal(t, (100+200+50)*time.Millisecond/3, snap.AverageDuration)
}

func TestCountersZeroValueSnapshot(t *testing.T) {
	c := NewCounters()
	snap := c.Snapshot()
	require.Equal(t, int64(0), snap.Total)
	require.Equal(t, 0.0, snap.SuccessRate)
}
