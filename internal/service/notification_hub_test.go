package service

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
	"golang.org/x/time/rate"
)

func TestNotificationHub_PushLocal(t *testing.T) {
	hub := NewNotificationHub(nil)
	a := &Client{Hub: hub, UserID: 1, Send: make(chan []byte, 1), Limiter: rate.NewLimiter(1, 1)}
	b := &Client{Hub: hub, UserID: 1, Send: make(chan []byte, 1), Limiter: rate.NewLimiter(1, 1)}
	other := &Client{Hub: hub, UserID: 2, Send: make(chan []byte, 1), Limiter: rate.NewLimiter(1, 1)}
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	assert.Equal(t, 2, hub.ConnectionCount(1))

	require.NoError(t, hub.PushToUser(context.Background(), 1, WSMessage{Type: "NOTIFICATION", Data: "hello"}))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			var decoded WSMessage
			require.NoError(t, json.Unmarshal(msg, &decoded))
			assert.Equal(t, "NOTIFICATION", decoded.Type)
			assert.Equal(t, "hello", decoded.Data)
		default:
			t.Fatal("expected message for user 1")
		}
	}
	assert.Empty(t, other.Send)

	// 缓冲区满时丢弃而不是阻塞
	require.NoError(t, hub.PushToUser(context.Background(), 1, WSMessage{Type: "NOTIFICATION"}))
	require.NoError(t, hub.PushToUser(context.Background(), 1, WSMessage{Type: "NOTIFICATION"}))

	hub.Unregister(a)
	hub.Unregister(a)
	assert.Equal(t, 1, hub.ConnectionCount(1))

	hub.Stop()
	assert.Zero(t, hub.ConnectionCount(1))
	assert.Zero(t, hub.ConnectionCount(2))
}

func TestServeWs_DeliversNotifications(t *testing.T) {
	hub := NewNotificationHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, 7)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount(7) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.PushToUser(context.Background(), 7, WSMessage{Type: "NOTIFICATION", Data: map[string]string{"title": "Hi"}}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "NOTIFICATION", msg.Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "PING"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "PONG", msg.Type)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ConnectionCount(7) == 0 }, 2*time.Second, 10*time.Millisecond)
}
