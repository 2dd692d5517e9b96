// internal/display/mqtt.go
package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	// ErrBrokerRequired indicates the MQTT broker URL is empty
	ErrBrokerRequired = errors.New("mqtt broker is required")
	// ErrPublishTimeout indicates the broker did not acknowledge in time
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

// MQTTConfig configures the remote display mirror
type MQTTConfig struct {
	Broker   string        // e.g. tcp://localhost:1883 (from config: mqtt_broker)
	Topic    string        // base topic (from config: mqtt_topic)
	ClientID string        // (from config: mqtt_client_id)
	QoS      byte          // 0, 1 or 2
	Timeout  time.Duration // connect and publish wait
}

// ScreenPayload is the JSON body published for each screen
type ScreenPayload struct {
	Timestamp int64    `json:"timestamp"`
	Lines     []string `json:"lines"`
}

// MQTT mirrors every screen to <topic>/screen and accepts arbitrary JSON
// documents under other subtopics.
type MQTT struct {
	client mqtt.Client
	config MQTTConfig
	now    func() time.Time
}

// DialMQTT connects to the broker and returns a sink.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, ErrBrokerRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return NewMQTT(client, cfg), nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client mqtt.Client, cfg MQTTConfig) *MQTT {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTT{client: client, config: cfg, now: time.Now}
}

// Show implements Sink.
func (m *MQTT) Show(lines Lines) error {
	return m.PublishJSON("screen", ScreenPayload{
		Timestamp: m.now().Unix(),
		Lines:     []string{lines[0], lines[1]},
	})
}

// PublishJSON marshals v and publishes it to <topic>/<subtopic>.
func (m *MQTT) PublishJSON(subtopic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subtopic, err)
	}

	topic := m.config.Topic + "/" + subtopic
	token := m.client.Publish(topic, m.config.QoS, false, payload)
	if !token.WaitTimeout(m.config.Timeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker, waiting up to 250ms for in-flight work
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
