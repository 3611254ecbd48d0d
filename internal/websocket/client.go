package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is a middleman between a websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages. Closed by the hub.
	send chan []byte

	// Direct replies to this client's requests.
	reply chan []byte
}

// Serve registers a client for conn, subscribes it to the initial topics and
// runs its pumps until the connection closes.
func Serve(hub *Hub, conn *websocket.Conn, topics []string) {
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 32), reply: make(chan []byte, 8)}
	if !hub.enqueue(hub.register, client) {
		conn.Close()
		return
	}
	for _, topic := range topics {
		hub.changeSubscription(subscription{client: client, topic: topic, add: true})
		client.trySend(newAck("subscribed", topic))
	}

	go client.writePump()
	client.readPump()
}

// readPump handles subscribe and unsubscribe requests from the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.enqueue(c.hub.unregister, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected websocket close")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("Error decoding websocket message")
			c.trySend(NewErrorMessage("Invalid message"))
			continue
		}
		switch msg.Action {
		case "subscribe", "unsubscribe":
			if !ValidTopic(msg.Topic) {
				c.trySend(NewErrorMessage("Unknown topic: " + msg.Topic))
				continue
			}
			c.hub.changeSubscription(subscription{client: c, topic: msg.Topic, add: msg.Action == "subscribe"})
			c.trySend(newAck(msg.Action+"d", msg.Topic))
		default:
			log.Debug().Str("action", msg.Action).Msg("Unknown websocket action received")
			c.trySend(NewErrorMessage("Unknown action: " + msg.Action))
		}
	}
}

// writePump forwards hub messages to the connection and keeps it alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case message := <-c.reply:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a reply, dropping it if the client is not keeping up.
func (c *Client) trySend(data []byte) {
	select {
	case c.reply <- data:
	default:
		log.Debug().Msg("Dropped reply to slow websocket client")
	}
}
