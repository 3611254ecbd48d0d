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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTopic(t *testing.T) {
	assert.True(t, ValidTopic("ads"))
	assert.True(t, ValidTopic(AdTopic(12)))
	assert.False(t, ValidTopic("ads/"))
	assert.False(t, ValidTopic("ads/0"))
	assert.False(t, ValidTopic("ads/x"))
	assert.False(t, ValidTopic("users"))
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn, r.URL.Query()["topic"])
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
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

func TestHub_PublishesToSubscribers(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?topic=ads")
	other := dial(t, url+"?topic="+AdTopic(3))

	assert.Equal(t, Message{Action: "subscribed", Topic: TopicAds}, readMessage(t, conn))
	assert.Equal(t, Message{Action: "subscribed", Topic: AdTopic(3)}, readMessage(t, other))

	hub.Publish(AdTopic(3), "comment.created", map[string]int{"pk": 1})
	hub.Publish(TopicAds, "ad.created", map[string]int{"pk": 1})

	msg := readMessage(t, conn)
	assert.Equal(t, "ad.created", msg.Action)
	assert.Equal(t, TopicAds, msg.Topic)

	msg = readMessage(t, other)
	assert.Equal(t, "comment.created", msg.Action)
}

func TestHub_SubscribeViaMessage(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(Message{Action: "subscribe", Topic: AdTopic(7)}))
	assert.Equal(t, Message{Action: "subscribed", Topic: AdTopic(7)}, readMessage(t, conn))

	hub.Publish(AdTopic(7), "comment.created", nil)
	msg := readMessage(t, conn)
	assert.Equal(t, "comment.created", msg.Action)
	assert.Equal(t, AdTopic(7), msg.Topic)

	require.NoError(t, conn.WriteJSON(Message{Action: "subscribe", Topic: "bogus"}))
	reply := readMessage(t, conn)
	assert.Equal(t, "error", reply.Action)

	require.NoError(t, conn.WriteJSON(Message{Action: "unsubscribe", Topic: AdTopic(7)}))
	assert.Equal(t, Message{Action: "unsubscribed", Topic: AdTopic(7)}, readMessage(t, conn))
}
