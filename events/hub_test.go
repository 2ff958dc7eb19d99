package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHubServer(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, r.URL.Query().Get("merchant"))
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubScopesMessagesToMerchant(t *testing.T) {
	hub := NewHub()
	url := startHubServer(t, hub)

	a := dial(t, url+"?merchant=m1")
	b := dial(t, url+"?merchant=m2")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	hub.Publish(ctx, "m2", "payment.updated", map[string]string{"id": "pay_b"})
	hub.Publish(ctx, "m1", "payment.updated", map[string]string{"id": "pay_a"})

	msg := readMessage(t, a)
	assert.Equal(t, "payment.updated", msg.Event)
	assert.Equal(t, map[string]interface{}{"id": "pay_a"}, msg.Data)

	msg = readMessage(t, b)
	assert.Equal(t, map[string]interface{}{"id": "pay_b"}, msg.Data)
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	url := startHubServer(t, hub)

	conn := dial(t, url+"?merchant=m1")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBusDispatchReachesHubClients(t *testing.T) {
	hub := NewHub()
	url := startHubServer(t, hub)
	conn := dial(t, url+"?merchant=m1")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus := NewRedisBus(nil, hub)
	bus.dispatch("not json")
	bus.dispatch(`{"merchant_id":"m1","event":"refund.updated","data":{"id":"rfnd_1"}}`)

	msg := readMessage(t, conn)
	assert.Equal(t, "refund.updated", msg.Event)
	assert.Equal(t, map[string]interface{}{"id": "rfnd_1"}, msg.Data)
}

func TestHubDropsSlowClientWithoutBlocking(t *testing.T) {
	hub := NewHub()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	defer server.Close()
	dial(t, "ws"+strings.TrimPrefix(server.URL, "http"))
	serverConn := <-conns

	// A client whose writer is stuck: nothing drains its buffer.
	hub.mutex.Lock()
	hub.clients[serverConn] = &client{conn: serverConn, merchantID: "m1", send: make(chan []byte)}
	hub.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		hub.Publish(context.Background(), "m1", "payment.updated", map[string]string{"id": "pay_a"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow client")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
