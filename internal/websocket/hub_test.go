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
	t.Cleanup(hub.Close)
	return hub
}

func registerClient(t *testing.T, hub *Hub, userID string, buffer int) *Client {
	t.Helper()
	client := NewClient(hub, nil, userID, buffer)
	require.True(t, hub.RegisterSync(client, time.Second))
	return client
}

func receive(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case raw := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	case <-time.After(time.Second):
		t.Fatalf("no message for client %s", client.UserID)
		return Event{}
	}
}

func TestHub_SendToUser_AllTabsReceive(t *testing.T) {
	hub := startHub(t)
	tab1 := registerClient(t, hub, "user-1", 4)
	tab2 := registerClient(t, hub, "user-1", 4)
	other := registerClient(t, hub, "user-2", 4)

	ok := hub.SendToUser("user-1", []byte(`{"type":"COMPLIANCE_STATUS","data":null}`))

	require.True(t, ok)
	assert.Equal(t, EventComplianceStatus, receive(t, tab1).Type)
	assert.Equal(t, EventComplianceStatus, receive(t, tab2).Type)
	assert.Len(t, other.send, 0)
	assert.Equal(t, 3, hub.ClientCount())
	assert.Equal(t, 2, hub.UserConnections("user-1"))
}

func TestHub_SendToUser_NoConnections(t *testing.T) {
	hub := startHub(t)

	assert.False(t, hub.SendToUser("ghost", []byte(`{}`)))
}

func TestHub_Unregister_ClosesSendChannel(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "user-1", 4)

	hub.Unregister(client)

	require.Eventually(t, func() bool { return hub.UserConnections("user-1") == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, client.IsSendClosed())
	assert.False(t, hub.SendToUser("user-1", []byte(`{}`)))
	assert.Equal(t, int64(0), hub.Metrics()["active_connections"])
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	hub := startHub(t)
	slow := registerClient(t, hub, "user-1", 1)

	for i := 0; i < maxBufferWarnings+1; i++ {
		hub.SendToUser("user-1", []byte(`{"type":"NOTIFICATION_NEW"}`))
	}

	require.Eventually(t, func() bool { return hub.UserConnections("user-1") == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, slow.IsSendClosed())
	assert.Equal(t, int64(maxBufferWarnings), hub.Metrics()["messages_dropped"])
}

func TestHub_EvictsOldestTabOverLimit(t *testing.T) {
	hub := startHub(t)
	clients := make([]*Client, 0, maxConnectionsPerUser)
	for i := 0; i < maxConnectionsPerUser; i++ {
		c := registerClient(t, hub, "user-1", 1)
		c.lastActivity.Store(int64(i + 1))
		clients = append(clients, c)
	}

	registerClient(t, hub, "user-1", 1)

	assert.Equal(t, maxConnectionsPerUser, hub.UserConnections("user-1"))
	assert.True(t, clients[0].IsSendClosed())
	assert.False(t, clients[1].IsSendClosed())
}

func TestHub_CloseDisconnectsEveryone(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	client := registerClient(t, hub, "user-1", 1)

	hub.Close()
	hub.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.True(t, client.IsSendClosed())
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.RegisterSync(NewClient(hub, nil, "user-2", 1), 50*time.Millisecond))
}

func TestClient_TrySendAfterClose(t *testing.T) {
	client := NewClient(nil, nil, "user-1", 1)
	require.True(t, client.CloseSend())
	assert.False(t, client.CloseSend())

	assert.False(t, client.trySend([]byte(`{}`)))
}
