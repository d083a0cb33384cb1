package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/wheelibin/striplight/internal/config"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealClient talks to an actual broker and restores its subscriptions after a reconnect.
type RealClient struct {
	logger *log.Logger
	client paho.Client

	mu            sync.Mutex
	subscriptions map[string]MessageHandler
}

func NewRealClient(logger *log.Logger, cfg config.MQTTConfig) (*RealClient, error) {
	r := &RealClient{logger: logger, subscriptions: map[string]MessageHandler{}}
	availability := cfg.TopicPrefix + "/availability"

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetWill(availability, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			logger.Info("connected to mqtt broker", "broker", cfg.Broker)
			c.Publish(availability, 1, true, "online")
			r.resubscribe()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", "err", err)
		})

	r.client = paho.NewClient(opts)
	token := r.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("Error connecting to mqtt broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("Error connecting to mqtt broker %s: %w", cfg.Broker, err)
	}
	return r, nil
}

func (r *RealClient) Publish(topic string, payload []byte, retained bool) error {
	token := r.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("Error publishing to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("Error publishing to %s: %w", topic, err)
	}
	return nil
}

func (r *RealClient) Subscribe(filter string, handler MessageHandler) error {
	r.mu.Lock()
	r.subscriptions[filter] = handler
	r.mu.Unlock()
	return r.subscribe(filter, handler)
}

func (r *RealClient) subscribe(filter string, handler MessageHandler) error {
	token := r.client.Subscribe(filter, 1, func(_ paho.Client, m paho.Message) {
		handler(m.Topic(), m.Payload())
	})
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("Error subscribing to %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("Error subscribing to %s: %w", filter, err)
	}
	return nil
}

func (r *RealClient) resubscribe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for filter, handler := range r.subscriptions {
		filter, handler := filter, handler
		// the connect handler runs on paho's goroutine, waiting on the token there would block it
		go func() {
			if err := r.subscribe(filter, handler); err != nil {
				r.logger.Error(err)
			}
		}()
	}
}

func (r *RealClient) Close() error {
	r.client.Disconnect(1000)
	return nil
}
