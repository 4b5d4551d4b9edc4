package companion

import (
	"fmt"
	"time"

	"refwatch/internal/log"
	"refwatch/internal/transport"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type mqttSubscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// ListenMQTT connects to broker and stores every report published on topic.
// The returned function disconnects.
func ListenMQTT(broker, topic, clientID string, receiver *Receiver) (func(), error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		// Subscriptions are renewed on every reconnect.
		if err := subscribe(client, topic, receiver); err != nil {
			logger := log.WithComponent("companion")
			logger.Error().Err(err).Str(log.FieldTopic, topic).Msg("mqtt subscribe failed")
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(transport.DefaultAckTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return func() { client.Disconnect(250) }, nil
}

func subscribe(client mqttSubscriber, topic string, receiver *Receiver) error {
	token := client.Subscribe(topic, transport.QoSAtLeastOnce, receiver.handleMQTT)
	if !token.WaitTimeout(transport.DefaultAckTimeout) {
		return fmt.Errorf("subscribe %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (receiver *Receiver) handleMQTT(_ mqtt.Client, message mqtt.Message) {
	envelope, err := transport.DecodeEnvelope(message.Payload())
	if err != nil || envelope.Type != transport.TypeReport {
		receiver.logger.Warn().Err(err).Str(log.FieldTopic, message.Topic()).Msg("ignoring mqtt message")
		return
	}
	_, _, _ = receiver.Accept("mqtt", envelope.Report)
}
