package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_NotifyRoutesByChannel(t *testing.T) {
	hub := startHub(t)
	alice := NewClient(hub, nil, "user:alice", "alice")
	bob := NewClient(hub, nil, "user:bob", "bob")
	hub.Add(alice)
	hub.Add(bob)

	hub.Notify("user:alice", "reservation.ready", map[string]string{"id": "r1"})

	msg := receive(t, alice)
	assert.Equal(t, "reservation.ready", msg.Action)
	assert.Equal(t, map[string]interface{}{"id": "r1"}, msg.Payload)
	assertNothing(t, bob)
}

func TestHub_RemoveClosesSend(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil, "session:s1", "alice")
	hub.Add(c)
	hub.Remove(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}

	// Removing twice is harmless.
	hub.Remove(c)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := NewClient(hub, nil, "user:slow", "slow")
	hub.clients[slow] = true
	hub.addSubscription(slow)

	for i := 0; i < sendBuffer; i++ {
		hub.send(slow, []byte("{}"))
	}
	assert.True(t, hub.clients[slow], "a full buffer is still fine")

	hub.send(slow, []byte("{}"))
	assert.False(t, hub.clients[slow])
	assert.Empty(t, hub.subscriptions["user:slow"])

	for range slow.Send {
	}
}

func TestClient_ReplyOnlyReachesSender(t *testing.T) {
	hub := startHub(t)
	a := NewClient(hub, nil, "user:alice", "alice")
	b := NewClient(hub, nil, "user:alice", "alice")
	hub.Add(a)
	hub.Add(b)

	a.Reply(NewErrorMessage("bad"))

	msg := receive(t, a)
	assert.Equal(t, "error", msg.Action)
	assertNothing(t, b)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	c := NewClient(hub, nil, "user:alice", "alice")
	hub.Add(c)
	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, ok := <-c.Send
	assert.False(t, ok)

	// Notify after stop does not block.
	hub.Notify("user:alice", "late", nil)
}
