package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(s *Subscriber) [][]byte {
	var out [][]byte
	for {
		select {
		case frame := <-s.C():
			out = append(out, frame)
		default:
			return out
		}
	}
}

func TestHubBroadcastExcludesSender(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Join("u1")
	b := hub.Join("u1")
	c := hub.Join("u1")

	hub.Broadcast("u1", a, []byte("hello"))

	assert.Empty(t, drain(a), "sender must not receive its own frame")
	require.Len(t, drain(b), 1)
	require.Len(t, drain(c), 1)
}

func TestHubRoomsAreIsolatedByOwner(t *testing.T) {
	hub := NewHub(nil)
	u1 := hub.Join("u1")
	u2 := hub.Join("u2")

	hub.Broadcast("u1", nil, []byte("for u1 only"))

	require.Len(t, drain(u1), 1)
	assert.Empty(t, drain(u2))
}

func TestHubLeave(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Join("u1")
	b := hub.Join("u1")
	assert.Equal(t, 2, hub.RoomSize("u1"))

	hub.Leave(b)
	assert.Equal(t, 1, hub.RoomSize("u1"))

	hub.Broadcast("u1", nil, []byte("after leave"))
	require.Len(t, drain(a), 1)
	assert.Empty(t, drain(b))

	hub.Leave(a)
	assert.Equal(t, 0, hub.RoomSize("u1"))
}

func TestHubDropsFramesForSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	slow := hub.Join("u1")

	// Fill the queue past its capacity; Broadcast must never block.
	for i := 0; i < 50; i++ {
		hub.Broadcast("u1", nil, []byte{byte(i)})
	}

	frames := drain(slow)
	assert.Len(t, frames, cap(slow.send))
	assert.Equal(t, []byte{0}, frames[0], "oldest frames are kept, newest dropped")
}

func TestHubBroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub(nil)
	assert.NotPanics(t, func() {
		hub.Broadcast("nobody", nil, []byte("void"))
	})
}
