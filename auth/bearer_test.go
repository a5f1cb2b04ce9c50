package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corexis/netkit"
)

func TestBearerAuthenticateAttachesHeader(t *testing.T) {
	b := NewBearer("tok-123", nil)
	req := &netkit.WireRequest{}
	require.NoError(t, b.Authenticate(context.Background(), req))
	require.Equal(t, "Bearer tok-123", req.Headers["Authorization"])
}

func TestBearerRefreshReplacesToken(t *testing.T) {
	var calls int32
	b := NewBearer("", func(ctx context.Context) (string, time.Duration, error) {
		atomic.AddInt32(&calls, 1)
		return "fresh-token", time.Minute, nil
	})

	require.NoError(t, b.Refresh(context.Background()))
	require.True(t, b.IsValid())
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	req := &netkit.WireRequest{}
	require.NoError(t, b.Authenticate(context.Background(), req))
	require.Equal(t, "Bearer fresh-token", req.Headers["Authorization"])
}

func TestBearerConcurrentAuthenticateCoalescesToOneRefresh(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	b := NewBearer("", func(ctx context.Context) (string, time.Duration, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "fresh-token", time.Minute, nil
	})

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			req := &netkit.WireRequest{}
			_ = b.Authenticate(context.Background(), req)
		}()
	}

	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "N concurrent authenticate calls with an expired token must trigger exactly one refresh")
}

func TestBearerIsValidFalseWhenEmpty(t *testing.T) {
	b := NewBearer("", nil)
	require.False(t, b.IsValid())
}

func TestBearerLogoutClearsToken(t *testing.T) {
	b := NewBearer("tok", nil)
	require.True(t, b.IsValid())
	b.Logout()
	require.False(t, b.IsValid())
}

func TestBearerExpiredTokenTriggersRefreshOnAuthenticate(t *testing.T) {
	b := NewBearer("stale", func(ctx context.Context) (string, time.Duration, error) {
		return "new", time.Minute, nil
	})
	b.expiresAt = time.Now().Add(-time.Second)

	req := &netkit.WireRequest{}
	require.NoError(t, b.Authenticate(context.Background(), req))
	require.Equal(t, "Bearer new", req.Headers["Authorization"])
}
