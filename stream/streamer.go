package stream

import (
	"fmt"
	"time"

	"github.com/eclipse/paho.mqtt.golang"

	"github.com/matt-g-everett/mdfplay/mdf"
)

const publishTimeout = 5 * time.Second

// Streamer sends keyframes to a renderer or physics consumer over MQTT. It is
// a playback.Applier.
type Streamer struct {
	client  mqtt.Client
	config  Config
	session string
}

// NewStreamer creates an instance of a Streamer for one playback session.
func NewStreamer(config Config, client mqtt.Client, session string) *Streamer {
	s := new(Streamer)
	s.client = client
	s.config = config
	s.session = session
	return s
}

// OnStateApplied publishes the keyframe on the applied topic.
func (s *Streamer) OnStateApplied(index int, kf mdf.Keyframe) error {
	f := NewFrame(FrameApplied, s.session, index, kf)
	return s.SendFrame(s.config.Mqtt.Topics.Applied, s.config.Mqtt.Qos, f)
}

// OnContinuousTick publishes the active keyframe on the tick topic. Ticks are
// sent at QoS 0; a lost tick is superseded by the next one.
func (s *Streamer) OnContinuousTick(index int, kf mdf.Keyframe) error {
	f := NewFrame(FrameTick, s.session, index, kf)
	return s.SendFrame(s.config.Mqtt.Topics.Tick, 0, f)
}

// SendFrame sends a frame as binary over MQTT.
func (s *Streamer) SendFrame(topic string, qos byte, f *Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding frame %d: %w", f.Index, err)
	}

	token := s.client.Publish(topic, qos, false, b)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing frame %d to %s: timed out", f.Index, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing frame %d to %s: %w", f.Index, topic, err)
	}
	return nil
}
