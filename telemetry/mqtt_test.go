package telemetry_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/minibit/relay"
	"github.com/minibit/relay/config"
	"github.com/minibit/relay/telemetry"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic string
	qos   byte
	data  []byte
}

// testClient only implements what the publisher uses.
type testClient struct {
	mqtt.Client
	connected  bool
	connectErr error

	mu        sync.Mutex
	published []published
}

func (c *testClient) IsConnected() bool {
	return c.connected
}

func (c *testClient) Connect() mqtt.Token {
	if c.connectErr == nil {
		c.connected = true
	}
	return doneToken{err: c.connectErr}
}

func (c *testClient) Disconnect(quiesce uint) {
	c.connected = false
}

func (c *testClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, qos: qos, data: payload.([]byte)})
	return doneToken{}
}

func (c *testClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

func TestMQTTPublisher(t *testing.T) {
	t.Run("publishes redirect outcomes", func(t *testing.T) {
		client := &testClient{}
		publisher := telemetry.NewPublisherWithClient(client, "minibit/relay")
		if err := publisher.Connect(time.Second); err != nil {
			t.Fatal(err)
		}

		publisher.ObserveRedirect(relay.RedirectEvent{
			PlayerName: "Alice",
			ServerName: "bedwars",
			Outcome:    relay.Redirecting,
			Origin:     relay.OriginCommand,
		})

		messages := client.messages()
		if len(messages) != 2 {
			t.Fatalf("expected 2 messages but got %d", len(messages))
		}
		msg := messages[1]
		if msg.topic != "minibit/relay/redirects" || msg.qos != 1 {
			t.Errorf("unexpected topic %s with qos %d", msg.topic, msg.qos)
		}
		var got map[string]string
		if err := json.Unmarshal(msg.data, &got); err != nil {
			t.Fatal(err)
		}
		if got["player"] != "Alice" || got["server"] != "bedwars" || got["outcome"] != "redirecting" || got["origin"] != "command" {
			t.Errorf("unexpected payload: %v", got)
		}
		if got["timestamp"] == "" {
			t.Error("expected a timestamp")
		}
	})

	t.Run("drops messages while disconnected", func(t *testing.T) {
		client := &testClient{}
		publisher := telemetry.NewPublisherWithClient(client, "")
		publisher.ObserveRedirect(relay.RedirectEvent{PlayerName: "Alice", Outcome: relay.Ignored})
		if len(client.messages()) != 0 {
			t.Error("didnt expect any message")
		}
	})

	t.Run("connect error", func(t *testing.T) {
		client := &testClient{connectErr: errors.New("connection refused")}
		publisher := telemetry.NewPublisherWithClient(client, "")
		if err := publisher.Connect(time.Second); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("disabled config", func(t *testing.T) {
		_, err := telemetry.NewMQTTPublisher(config.MQTTConfig{Enabled: false})
		if !errors.Is(err, telemetry.ErrMQTTDisabled) {
			t.Errorf("expected ErrMQTTDisabled but got %v", err)
		}
	})
}
