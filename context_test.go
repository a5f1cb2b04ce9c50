package netkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRequestContextAssignsIDAndStartTime(t *testing.T) {
	before := time.Now()
	rc := newRequestContext()
	after := time.Now()

	require.NotEmpty(t, rc.ID())
	require.False(t, rc.StartedAt().Before(before))
	require.False(t, rc.StartedAt().After(after))
	require.Equal(t, 0, rc.RetryCount())
}

func TestNewRequestContextAssignsUniqueIDs(t *testing.T) {
	a := newRequestContext()
	b := newRequestContext()
	require.NotEqual(t, a.ID(), b.ID())
}

func TestIncrementRetryAdvancesRetryCount(t *testing.T) {
	rc := newRequestContext()
	rc.incrementRetry()
	rc.incrementRetry()
	require.Equal(t, 2, rc.RetryCount())
}

func TestTagAndHasTag(t *testing.T) {
	rc := newRequestContext()
	require.False(t, rc.HasTag("sync:no-requeue"))
	rc.Tag("sync:no-requeue")
	require.True(t, rc.HasTag("sync:no-requeue"))
}

func TestMetadataSetAndGet(t *testing.T) {
	rc := newRequestContext()
	_, ok := rc.Metadata("missing")
	require.False(t, ok)

	rc.SetMetadata("attempt-started", 123)
	v, ok := rc.Metadata("attempt-started")
	require.True(t, ok)
	require.Equal(t, 123, v)
}
