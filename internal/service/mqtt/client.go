package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"platewatch/internal/config"
	"platewatch/internal/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

var ErrNotConnected = errors.New("mqtt not connected")

// Publisher is the part of the client the relay sink and reporters need.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Client is a reconnecting MQTT publisher rooted at a base topic.
type Client struct {
	broker    string
	clientID  string
	baseTopic string
	username  string
	password  string
	logger    *logger.Logger

	client paho.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

func NewClient(config *config.Config, logger *logger.Logger) *Client {
	return &Client{
		broker:    brokerURL(config.MQTTBroker),
		clientID:  config.MQTTClientID,
		baseTopic: strings.TrimSuffix(config.MQTTTopic, "/"),
		username:  config.MQTTUsername,
		password:  config.MQTTPassword,
		logger:    logger,
	}
}

// Connect dials the broker and keeps reconnecting in the background after a loss.
func (c *Client) Connect(ctx context.Context) error {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.broker)
	opts.SetClientID(c.clientID)
	if c.username != "" {
		opts.SetUsername(c.username)
		opts.SetPassword(c.password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(paho.Client) {
		c.setConnected(true)
		c.logger.Info("MQTT connection established: %s", c.broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		c.setConnected(false)
		c.logger.Warning("MQTT connection lost, reconnecting: %v", err)
	}

	c.client = paho.NewClient(opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-time.After(connectTimeout):
		return fmt.Errorf("mqtt connection timeout: %s", c.broker)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	c.setConnected(true)
	return nil
}

// Topic joins suffix onto the client's base topic.
func (c *Client) Topic(suffix string) string {
	if c.baseTopic == "" {
		return suffix
	}
	return c.baseTopic + "/" + suffix
}

// Publish sends payload with QoS 1 and waits for the broker to take it.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		c.countError()
		return ErrNotConnected
	}

	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		c.countError()
		return fmt.Errorf("mqtt publish timeout: %s", topic)
	}
	if err := token.Error(); err != nil {
		c.countError()
		return fmt.Errorf("mqtt publish failed: %w", err)
	}

	c.mu.Lock()
	c.published++
	c.mu.Unlock()
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil
}

func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Connected: c.connected, Published: c.published, Errors: c.errors}
}

func (c *Client) Close() {
	if c.client == nil {
		return
	}
	c.client.Disconnect(250)
	c.setConnected(false)
	c.logger.Info("MQTT client disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) countError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// brokerURL accepts host, host:port or a full URL.
func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	if !strings.Contains(broker, ":") {
		broker += ":1883"
	}
	return "tcp://" + broker
}
