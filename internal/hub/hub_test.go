package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddRemoveOnlineTransitions(t *testing.T) {
	h := New()
	c1 := NewConn(7, nil, 4)
	c2 := NewConn(7, nil, 4)

	require.True(t, h.Add(c1), "first connection brings the user online")
	require.False(t, h.Add(c2), "second connection is not a transition")
	require.True(t, h.Online(7))
	require.Equal(t, 2, h.Len())

	require.False(t, h.Remove(c1), "one connection remains")
	require.True(t, h.Remove(c2), "last connection takes the user offline")
	require.False(t, h.Online(7))
	require.Equal(t, 0, h.Len())

	require.False(t, h.Remove(c2), "double remove is a no-op")
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	h := New()
	c1 := NewConn(7, nil, 4)
	c2 := NewConn(7, nil, 4)
	h.Add(c1)
	h.Add(c2)

	sent, dropped := h.SendToUser(7, []byte("x"))
	require.Equal(t, 2, sent)
	require.Equal(t, 0, dropped)
	require.Equal(t, []byte("x"), <-c1.Out)
	require.Equal(t, []byte("x"), <-c2.Out)

	sent, dropped = h.SendToUser(99, []byte("x"))
	require.Zero(t, sent)
	require.Zero(t, dropped)
}

func TestSendToUserDropsOnFullQueue(t *testing.T) {
	h := New()
	c := NewConn(7, nil, 1)
	h.Add(c)

	require.True(t, c.TrySend([]byte("first")))
	sent, dropped := h.SendToUser(7, []byte("second"))
	require.Equal(t, 0, sent)
	require.Equal(t, 1, dropped, "a blocked connection must not stall the broadcast")
}

func TestConcurrentAddRemove(t *testing.T) {
	h := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			c := NewConn(uid%4, nil, 2)
			h.Add(c)
			h.SendToUser(uid%4, []byte("ping"))
			h.Remove(c)
		}(int64(i))
	}
	wg.Wait()
	require.Equal(t, 0, h.Len())
}
