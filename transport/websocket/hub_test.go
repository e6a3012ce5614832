package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/autodrive/sim/engine"
	"github.com/wricardo/autodrive/sim/service"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

// startHub runs the hub until the test ends
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

func readMessage(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case data := <-client.send:
		var message Message
		require.NoError(t, json.Unmarshal(data, &message))
		return message
	case <-time.After(time.Second):
		require.FailNow(t, "no message received within timeout")
	}
	return Message{}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client1 := newTestClient(hub, "abcd")
	client2 := newTestClient(hub, "abcd")

	hub.registerClient(client1)
	hub.registerClient(client2)
	assert.Equal(t, 2, hub.ClientCount("ABCD"))

	hub.unregisterClient(client1)
	assert.Equal(t, 1, hub.ClientCount("abcd"))
	_, ok := <-client1.send
	assert.False(t, ok, "unregistered client's send channel should be closed")

	hub.unregisterClient(client2)
	assert.NotContains(t, hub.sessions, "abcd")

	// Unregistering twice is harmless
	hub.unregisterClient(client2)
}

func TestHubBroadcastRun(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "abcd")
	other := newTestClient(hub, "zzzz")
	hub.register <- client
	hub.register <- other

	hub.BroadcastRun(&service.RunResult{
		RunID:     "run-1",
		SessionID: "ABCD",
		Steps:     7,
		Lines:     []string{"- A, (5,4) S"},
		Results: []engine.Result{
			{Name: "A", Position: engine.Position{X: 5, Y: 4}, Heading: engine.South},
		},
	})

	message := readMessage(t, client)
	assert.Equal(t, EventRunCompleted, message.Event)
	require.NotNil(t, message.Run)
	assert.Equal(t, "run-1", message.Run.RunID)
	assert.Equal(t, 7, message.Run.Steps)
	require.Len(t, message.Run.Results, 1)
	assert.Equal(t, engine.South, message.Run.Results[0].Heading)

	select {
	case <-other.send:
		assert.Fail(t, "client of another session should not receive the run")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastSessionAndEvent(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "abcd")
	hub.register <- client

	hub.BroadcastSession(&service.SessionInfo{ID: "abcd", Field: engine.Field{Width: 3, Height: 4}})
	message := readMessage(t, client)
	assert.Equal(t, EventSessionUpdated, message.Event)
	require.NotNil(t, message.Session)
	assert.Equal(t, 4, message.Session.Field.Height)

	hub.BroadcastEvent("abcd", EventSessionDeleted, "bye")
	message = readMessage(t, client)
	assert.Equal(t, EventSessionDeleted, message.Event)
	assert.Equal(t, "bye", message.Data)
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newTestClient(hub, "abcd")
	hub.register <- client

	cancel()
	<-hub.done

	_, ok := <-client.send
	assert.False(t, ok, "client send channel should be closed when the hub stops")

	// Broadcasting after shutdown must not block
	finished := make(chan struct{})
	go func() {
		hub.BroadcastEvent("abcd", "late", nil)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		assert.Fail(t, "BroadcastEvent blocked after hub stopped")
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	hub := startHub(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("ws-test") == 1 },
		time.Second, 5*time.Millisecond, "client was not registered")

	hub.BroadcastRun(&service.RunResult{RunID: "r", SessionID: "WS-TEST", Lines: []string{"- A, (0,0) N"}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message Message
	require.NoError(t, json.Unmarshal(data, &message))
	require.NotNil(t, message.Run, string(data))
	assert.Equal(t, []string{"- A, (0,0) N"}, message.Run.Lines)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("ws-test") == 0 },
		time.Second, 5*time.Millisecond, "client was not unregistered after close")
}
