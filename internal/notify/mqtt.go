package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	appLog "calibtrack/internal/log"
	"calibtrack/internal/suggest"
)

const DefaultTopicPrefix = "calibtrack/decisions"

// MQTTConfig holds broker connection and publishing settings.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retained    bool
}

// publisher is the part of mqtt.Client the notifier needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes decisions as JSON to <prefix>/<serial>/<state>.
type MQTT struct {
	client publisher
	cfg    MQTTConfig
}

// DialMQTT connects to the broker. The connection reconnects on its own
// after it was established once.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is empty")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		appLog.Info("mqtt connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		appLog.Error("mqtt connection lost", err, "broker", cfg.Broker)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return newMQTT(client, cfg), nil
}

func newMQTT(client publisher, cfg MQTTConfig) *MQTT {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	cfg.TopicPrefix = strings.TrimRight(cfg.TopicPrefix, "/")
	if cfg.QoS > 2 {
		cfg.QoS = 1
	}
	return &MQTT{client: client, cfg: cfg}
}

// Topic returns the topic a decision is published on.
func (m *MQTT) Topic(d suggest.Decision) string {
	serial := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(d.ToolSerialID)
	return m.cfg.TopicPrefix + "/" + serial + "/" + string(d.State)
}

func (m *MQTT) Notify(ctx context.Context, d suggest.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	topic := m.Topic(d)
	token := m.client.Publish(topic, m.cfg.QoS, m.cfg.Retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	appLog.Debug("mqtt published", "topic", topic, "bytes", len(payload))
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if c, ok := m.client.(mqtt.Client); ok {
		c.Disconnect(250)
	}
}
