package identity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/transport"
)

func TestGUIDRoundTrip(t *testing.T) {
	g := transport.GUID{Prefix: [12]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, EntityID: 0x00000103}
	id := FromGUID(g)
	require.Equal(t, GID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 0, 0, 1, 3}, id)
	require.Equal(t, g, ToGUID(id))
	require.Equal(t, "0102030405060708090a0b0c00000103", id.String())
}

func TestSequenceSplit(t *testing.T) {
	high, low := SplitSequence(42)
	require.Equal(t, int32(0), high)
	require.Equal(t, uint32(42), low)

	for _, n := range []int64{0, 1, 42, 1 << 32, 1<<32 + 7, math.MaxInt64, -1, math.MinInt64} {
		high, low := SplitSequence(n)
		require.Equal(t, n, JoinSequence(high, low), n)
		require.Equal(t, n, FromSequenceNumber(ToSequenceNumber(n)), n)
	}
}

func TestNanoseconds(t *testing.T) {
	require.Equal(t, int64(3_000_000_007), Nanoseconds(transport.Time{Sec: 3, Nanosec: 7}))
}
