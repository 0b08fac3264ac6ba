package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/raemisreport/internal/config"
	"github.com/jgoulah/raemisreport/pkg/models"
)

const (
	clientID       = "raemisreport"
	connectTimeout = 10 * time.Second
	publishTimeout = 10 * time.Second
	qos            = 1
)

// messageClient is the part of mqtt.Client the publisher needs
type messageClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher sends run summaries to an MQTT broker
type Publisher struct {
	client      messageClient
	topicPrefix string
}

// New connects to the broker in cfg
func New(cfg config.MQTTConfig, topicPrefix string) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}

	return newWithClient(client, topicPrefix), nil
}

func newWithClient(client messageClient, topicPrefix string) *Publisher {
	return &Publisher{client: client, topicPrefix: topicPrefix}
}

// RunTopic is where run summaries are published
func RunTopic(prefix string) string {
	return prefix + "/run"
}

// Payload encodes a run summary. Hours without a standard deviation carry
// a null std.
func Payload(run *models.RunSummary) ([]byte, error) {
	body, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return body, nil
}

// PublishRun sends the summary as a retained message
func (p *Publisher) PublishRun(run *models.RunSummary) error {
	body, err := Payload(run)
	if err != nil {
		return err
	}

	topic := RunTopic(p.topicPrefix)
	token := p.client.Publish(topic, qos, true, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
