// Package broker is a thin MQTT client shared by device ingest and the
// activation MQTT sink.
package broker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/straja-ai/arrhythmia/internal/redact"
)

// Config describes the broker connection.
type Config struct {
	URL            string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
}

// Handler receives messages for a subscription.
type Handler func(topic string, payload []byte)

// Client wraps a paho client and re-subscribes after reconnects.
type Client struct {
	cfg    Config
	client mqtt.Client

	mu   sync.Mutex
	subs map[string]Handler
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.ClientID) == "" {
		host, _ := os.Hostname()
		c.ClientID = fmt.Sprintf("arrhythmiad-%s-%d", host, time.Now().Unix())
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.QoS > 2 {
		c.QoS = 1
	}
	return c
}

func (c *Client) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.URL)
	opts.SetClientID(c.cfg.ClientID)
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	opts.SetOrderMatters(false)
	opts.OnConnect = c.onConnect
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		redact.Logf("mqtt: connection to %s lost: %v", c.cfg.URL, err)
	}
	return opts
}

// Connect dials the broker and blocks until connected or the timeout elapses.
func Connect(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("broker url is empty")
	}
	c := &Client{cfg: cfg.withDefaults(), subs: make(map[string]Handler)}
	c.client = mqtt.NewClient(c.options())

	token := c.client.Connect()
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect %s: timed out after %s", redact.String(c.cfg.URL), c.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", redact.String(c.cfg.URL), err)
	}
	redact.Logf("mqtt: connected to %s as %s", c.cfg.URL, c.cfg.ClientID)
	return c, nil
}

func (c *Client) onConnect(client mqtt.Client) {
	c.mu.Lock()
	subs := make(map[string]Handler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		token := client.Subscribe(topic, c.cfg.QoS, wrap(h))
		token.Wait()
		if err := token.Error(); err != nil {
			redact.Logf("mqtt: resubscribe %s failed: %v", topic, err)
		}
	}
}

func wrap(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	}
}

// Subscribe registers h for topic, which may carry MQTT wildcards.
func (c *Client) Subscribe(ctx context.Context, topic string, h Handler) error {
	if h == nil {
		return errors.New("handler is nil")
	}
	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()

	return wait(ctx, c.client.Subscribe(topic, c.cfg.QoS, wrap(h)))
}

// Publish sends payload to topic and waits for the broker acknowledgement.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	return wait(ctx, c.client.Publish(topic, c.cfg.QoS, false, payload))
}

// Close disconnects, allowing in-flight work a short quiesce period.
func (c *Client) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
