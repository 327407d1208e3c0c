package stream

import (
	"encoding/json"
	"log"

	"github.com/eclipse/paho.mqtt.golang"
)

// ControlMessage is a command received on the control topic.
type ControlMessage struct {
	Type string `json:"type"`
	// Session limits the command to one playback. Empty matches any.
	Session string `json:"session,omitempty"`
}

// Canceller is the part of a playback that Control can drive.
type Canceller interface {
	Cancel()
}

// Control listens for commands from consumers.
type Control struct {
	config  Config
	client  mqtt.Client
	session string
	target  Canceller
}

// NewControl creates a Control for the given playback session.
func NewControl(config Config, client mqtt.Client, session string, target Canceller) *Control {
	c := new(Control)
	c.config = config
	c.client = client
	c.session = session
	c.target = target
	return c
}

func (c *Control) handleClientMessages(client mqtt.Client, msg mqtt.Message) {
	log.Printf("Received msg %d on %s: %s", msg.MessageID(), msg.Topic(), msg.Payload())

	var message ControlMessage
	if err := json.Unmarshal(msg.Payload(), &message); err != nil {
		log.Printf("Ignoring control message: %v", err)
		return
	}

	if message.Session != "" && message.Session != c.session {
		return
	}

	switch message.Type {
	case "cancel":
		log.Printf("Cancelling playback %s", c.session)
		c.target.Cancel()
	default:
		log.Printf("Unknown control message type %q", message.Type)
	}
}

// Subscribe registers for control messages. Call it again after a reconnect.
func (c *Control) Subscribe() error {
	token := c.client.Subscribe(c.config.Mqtt.Topics.Control, c.config.Mqtt.Qos, c.handleClientMessages)
	token.Wait()
	return token.Error()
}
