package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTT quality of service levels.
const (
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
)

var errConnectTimeout = errors.New("connect timed out")

type mqttClient interface {
	IsConnected() bool
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTLink publishes report envelopes at QoS 1. The broker's PUBACK is
// taken as the acknowledgment; the companion drops redelivered ids.
type MQTTLink struct {
	broker  string
	topic   string
	timeout time.Duration

	mu     sync.Mutex
	client mqttClient
}

// NewMQTTLink returns a link publishing on topic. It connects to broker on
// the first delivery and again after any failed attempt, so an unreachable
// broker at startup only delays delivery.
func NewMQTTLink(broker, topic, clientID string) *MQTTLink {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	// A persistent session keeps in-flight QoS 1 messages across reconnects.
	opts.SetCleanSession(false)

	link := newMQTTLink(mqtt.NewClient(opts), topic)
	link.broker = broker
	return link
}

func newMQTTLink(client mqttClient, topic string) *MQTTLink {
	return &MQTTLink{
		client:  client,
		topic:   topic,
		timeout: DefaultAckTimeout,
	}
}

func (link *MQTTLink) Name() string { return "mqtt" }

func (link *MQTTLink) Deliver(ctx context.Context, id uuid.UUID, payload []byte) error {
	frame, err := ReportEnvelope(id, payload)
	if err != nil {
		return fmt.Errorf("mqtt deliver %s: %w", id, err)
	}

	link.mu.Lock()
	defer link.mu.Unlock()

	if !link.client.IsConnected() {
		if err := link.wait(ctx, link.client.Connect(), errConnectTimeout); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", link.broker, err)
		}
	}
	if err := link.wait(ctx, link.client.Publish(link.topic, QoSAtLeastOnce, false, frame), ErrNotAcknowledged); err != nil {
		return fmt.Errorf("mqtt deliver %s: %w", id, err)
	}
	return nil
}

func (link *MQTTLink) wait(ctx context.Context, token mqtt.Token, expired error) error {
	timer := time.NewTimer(link.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return expired
	case <-ctx.Done():
		return ctx.Err()
	}
	return token.Error()
}

func (link *MQTTLink) Close() error {
	link.mu.Lock()
	defer link.mu.Unlock()
	if link.client.IsConnected() {
		link.client.Disconnect(250)
	}
	return nil
}

var (
	_ Link = (*WebSocketLink)(nil)
	_ Link = (*MQTTLink)(nil)
)
