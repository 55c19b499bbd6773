// Package mqtt mirrors editor and preview events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gyaneshwarpardhi/caseflow/internal/config"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// sender is the part of paho.Client the publisher needs.
type sender interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher forwards bus events to "<topic>/<event type>".
type Publisher struct {
	client sender
	conf   config.MQTTConf
	mu     sync.Mutex
	sent   int
	failed int
}

// NewClient builds a paho client for conf but does not connect.
func NewClient(conf config.MQTTConf) paho.Client {
	opts := paho.NewClientOptions().
		AddBroker(conf.Broker).
		SetClientID(conf.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			slog.Info("mqtt: connected", "broker", conf.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt: connection lost", "broker", conf.Broker, "err", err)
		})
	return paho.NewClient(opts)
}

// Connect attempts to connect to the broker without blocking indefinitely.
func Connect(c paho.Client) error {
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// New creates a Publisher sending through client.
func New(client sender, conf config.MQTTConf) *Publisher {
	return &Publisher{client: client, conf: conf}
}

// Topic returns the topic ev is published to.
func (p *Publisher) Topic(ev event.Event) string {
	return strings.TrimSuffix(p.conf.Topic, "/") + "/" + string(ev.Type)
}

// Send publishes one event and waits for the broker to take it.
func (p *Publisher) Send(ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(ev), byte(p.conf.QoS), p.conf.Retain, payload)
	ok := token.WaitTimeout(publishTimeout)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !ok {
		p.failed++
		return &PublishTimeoutError{Topic: p.Topic(ev)}
	}
	if err := token.Error(); err != nil {
		p.failed++
		return err
	}
	p.sent++
	return nil
}

// Run subscribes to bus and forwards events until ctx is done or the bus
// closes the subscription.
func (p *Publisher) Run(ctx context.Context, bus *event.Bus) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := p.Send(ev); err != nil {
				slog.Warn("mqtt: publish failed", "type", ev.Type, "err", err)
			}
		}
	}
}

// Stats returns how many events were sent and how many failed.
func (p *Publisher) Stats() (sent, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent, p.failed
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// PublishTimeoutError indicates the broker did not acknowledge in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}
