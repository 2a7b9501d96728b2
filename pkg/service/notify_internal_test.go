package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/transport"
)

type drainedCondition struct{}

func (drainedCondition) Mask() transport.StateMask { return transport.AnyState }
func (drainedCondition) UnreadCount() int          { return 0 }

func TestDispatchReportsDrainedReader(t *testing.T) {
	g := newGate(nil, drainedCondition{})
	g.listener.OnDataAvailable(nil)

	var counts []int
	g.cb = func(userData any, count int) {
		require.Equal(t, "user data", userData)
		counts = append(counts, count)
	}
	g.userData = "user data"
	g.listener.OnDataAvailable(nil)
	g.listener.OnDataAvailable(nil)
	require.Equal(t, []int{0, 0}, counts)
}
