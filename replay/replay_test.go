package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckAndMark_FirstSeenNotReplay(t *testing.T) {
	c := New(10, time.Minute)
	require.False(t, c.CheckAndMark("rid-1"))
}

func TestCheckAndMark_SecondSeenIsReplay(t *testing.T) {
	c := New(10, time.Minute)
	require.False(t, c.CheckAndMark("rid-1"))
	require.True(t, c.CheckAndMark("rid-1"))
}

func TestCheckAndMark_ExpiresAfterTTL(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	require.False(t, c.CheckAndMark("rid-1"))
	time.Sleep(50 * time.Millisecond)
	require.False(t, c.CheckAndMark("rid-1"))
}

func TestCheckAndMark_CapacityEvictsOldest(t *testing.T) {
	c := New(2, time.Minute)
	require.False(t, c.CheckAndMark("a"))
	require.False(t, c.CheckAndMark("b"))
	require.False(t, c.CheckAndMark("c"))
	require.LessOrEqual(t, c.Len(), 2)
	// "a" was the oldest entry, so it is no longer remembered.
	require.False(t, c.CheckAndMark("a"))
}

func TestNew_DefaultsOnZero(t *testing.T) {
	c := New(0, 0)
	require.False(t, c.CheckAndMark("rid-x"))
}
