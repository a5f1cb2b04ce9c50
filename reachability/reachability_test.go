package reachability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsReachable(t *testing.T) {
	require.False(t, Unknown.IsReachable())
	require.False(t, NotReachable.IsReachable())
	require.True(t, ViaWifi.IsReachable())
	require.True(t, ViaCellular.IsReachable())
}

func TestSetNotifiesListeners(t *testing.T) {
	o := New()
	var got []Status
	o.Subscribe(func(s Status) { got = append(got, s) })

	o.Set(ViaWifi)
	o.Set(NotReachable)

	require.Equal(t, []Status{ViaWifi, NotReachable}, got)
}

func TestSetIsNoOpWhenUnchanged(t *testing.T) {
	o := New()
	var calls int
	o.Subscribe(func(s Status) { calls++ })

	o.Set(ViaWifi)
	o.Set(ViaWifi)

	require.Equal(t, 1, calls)
}

func TestSetReportsNonReachableToReachableTransition(t *testing.T) {
	o := New()
	o.Set(NotReachable)
	became := o.Set(ViaWifi)
	require.True(t, became)

	became = o.Set(ViaCellular)
	require.False(t, became, "reachable-to-reachable is not the watched transition")
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	o := New()
	var calls int
	id := o.Subscribe(func(s Status) { calls++ })
	o.Unsubscribe(id)

	o.Set(ViaWifi)
	require.Equal(t, 0, calls)
}
