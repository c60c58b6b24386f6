// Package mqtt republishes stored readings to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/frieda566/plant-watering-system/internal/config"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

var ErrNotConnected = errors.New("mqtt client not connected")

const publishTimeout = 5 * time.Second

// Message is the JSON body published for each reading.
type Message struct {
	DeviceID      string    `json:"device_id"`
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Moisture      *int      `json:"moisture,omitempty"`
	Temperature   *int      `json:"temperature,omitempty"`
	Humidity      *int      `json:"humidity,omitempty"`
	WaterDistance *int      `json:"water_distance,omitempty"`
}

type Publisher struct {
	client      mqtt.Client
	topic       string
	statusTopic string
	deviceID    string
	logger      *slog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		topic:       cfg.MQTTTopic,
		statusTopic: statusTopic(cfg.DeviceID),
		deviceID:    cfg.DeviceID,
		logger:      logger.With("component", "mqtt"),
		stopCh:      make(chan struct{}),
	}

	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = "plantmon-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	// the broker marks the monitor offline if it vanishes without Disconnect
	opts.SetWill(p.statusTopic, "offline", 1, true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "client_id", clientID)
		c.Publish(p.statusTopic, 1, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

func statusTopic(deviceID string) string {
	return fmt.Sprintf("plants/%s/status", deviceID)
}

// Connect waits for the first connection, honouring ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errors.New("publisher stopped")
	default:
	}
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return errors.New("publisher stopped")
		default:
		}
	}
}

func (p *Publisher) Name() string { return "mqtt" }

// Consume publishes r to the readings topic with QoS 1.
func (p *Publisher) Consume(ctx context.Context, r types.Reading) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	data, err := encode(p.deviceID, r)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, 1, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish reading: %w", err)
	}
	p.logger.Debug("published reading", "topic", p.topic, "id", r.ID)
	return nil
}

func encode(deviceID string, r types.Reading) ([]byte, error) {
	data, err := json.Marshal(Message{
		DeviceID:      deviceID,
		ID:            r.ID,
		Timestamp:     r.Timestamp.UTC(),
		Moisture:      r.Moisture,
		Temperature:   r.Temperature,
		Humidity:      r.Humidity,
		WaterDistance: r.WaterDistance,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal reading: %w", err)
	}
	return data, nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect publishes the offline status and closes the connection. It is idempotent.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		if p.IsConnected() {
			p.client.Publish(p.statusTopic, 1, true, "offline").WaitTimeout(time.Second)
		}
		p.client.Disconnect(250)
		p.setConnected(false)
		p.logger.Info("mqtt disconnected")
	})
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
