// Package telemetry publishes redirect outcomes to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/minibit/relay"
	"github.com/minibit/relay/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	TopicRedirects = "redirects"
	TopicStatus    = "status"
)

var ErrMQTTDisabled = errors.New("mqtt is disabled")

type redirectMessage struct {
	Player    string `json:"player"`
	Server    string `json:"server"`
	Outcome   string `json:"outcome"`
	Origin    string `json:"origin"`
	Timestamp string `json:"timestamp"`
}

// NewMQTTPublisher configures a client for cfg, Connect has to be called
// before anything gets published.
func NewMQTTPublisher(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	if !cfg.Enabled {
		return nil, ErrMQTTDisabled
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	return NewPublisherWithClient(mqtt.NewClient(opts), cfg.TopicPrefix), nil
}

func NewPublisherWithClient(client mqtt.Client, topicPrefix string) *MQTTPublisher {
	return &MQTTPublisher{
		client:      client,
		topicPrefix: topicPrefix,
	}
}

// MQTTPublisher is a relay.OutcomeObserver. Publishing never blocks the
// caller and messages are dropped while the broker is unreachable.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
}

func (p *MQTTPublisher) Connect(timeout time.Duration) error {
	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		return errors.Errorf("MQTT connect timed out after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "MQTT connect failed")
	}
	p.publish(TopicStatus, map[string]string{
		"event":     "started",
		"timestamp": timestamp(),
	})
	return nil
}

func (p *MQTTPublisher) Close() {
	p.publish(TopicStatus, map[string]string{
		"event":     "shutdown",
		"timestamp": timestamp(),
	})
	p.client.Disconnect(250)
	log.Info().Msg("MQTT disconnected")
}

func (p *MQTTPublisher) ObserveRedirect(event relay.RedirectEvent) {
	p.publish(TopicRedirects, redirectMessage{
		Player:    event.PlayerName,
		Server:    event.ServerName,
		Outcome:   event.Outcome.String(),
		Origin:    event.Origin.String(),
		Timestamp: timestamp(),
	})
}

func (p *MQTTPublisher) topic(name string) string {
	if p.topicPrefix == "" {
		return name
	}
	return p.topicPrefix + "/" + name
}

func (p *MQTTPublisher) publish(name string, payload interface{}) {
	if !p.client.IsConnected() {
		return
	}
	topic := p.topic(name)
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}
	token := p.client.Publish(topic, 1, false, data)
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
