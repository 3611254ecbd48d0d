package websocket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Message defines the structure for websocket messages in both directions.
type Message struct {
	Action  string `json:"action"`
	Topic   string `json:"topic,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// AdTopic is the topic carrying comment events of one ad.
func AdTopic(adID int64) string {
	return fmt.Sprintf("ads/%d", adID)
}

// ValidTopic reports whether topic is "ads" or "ads/{id}".
func ValidTopic(topic string) bool {
	if topic == TopicAds {
		return true
	}
	rest, ok := strings.CutPrefix(topic, TopicAds+"/")
	if !ok {
		return false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return err == nil && id > 0
}

// newAck confirms a subscription change. Events published after the ack is
// sent reach the client.
func newAck(action, topic string) []byte {
	data, _ := json.Marshal(Message{Action: action, Topic: topic})
	return data
}

// NewErrorMessage creates a marshalled error message.
func NewErrorMessage(message string) []byte {
	data, _ := json.Marshal(Message{Action: "error", Payload: map[string]string{"message": message}})
	return data
}
