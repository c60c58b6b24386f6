package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frieda566/plant-watering-system/internal/config"
	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

func TestEncode(t *testing.T) {
	r := types.Reading{ID: 7, Timestamp: time.Date(2025, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))}
	r.Set(types.FieldMoisture, 45)
	r.Set(types.FieldWaterDistance, 12)

	data, err := encode("basil", r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "basil", got["device_id"])
	assert.EqualValues(t, 7, got["id"])
	assert.Equal(t, "2025-06-01T12:00:00Z", got["timestamp"])
	assert.EqualValues(t, 45, got["moisture"])
	assert.EqualValues(t, 12, got["water_distance"])
	assert.NotContains(t, got, "temperature")
	assert.NotContains(t, got, "humidity")
}

func TestStatusTopic(t *testing.T) {
	assert.Equal(t, "plants/basil/status", statusTopic("basil"))
}

func TestPublisher_NotConnected(t *testing.T) {
	p := NewPublisher(config.Config{MQTTBroker: "127.0.0.1", MQTTPort: 1, DeviceID: "basil", MQTTTopic: "plants/basil/readings"}, nil)
	assert.Equal(t, "mqtt", p.Name())
	assert.False(t, p.IsConnected())

	err := p.Consume(context.Background(), types.Reading{Timestamp: time.Now()})
	assert.True(t, errors.Is(err, ErrNotConnected))

	p.Disconnect()
	p.Disconnect()
	err = p.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "stopped"))
}

func TestPublisher_ConnectHonoursContext(t *testing.T) {
	p := NewPublisher(config.Config{MQTTBroker: "127.0.0.1", MQTTPort: 1, DeviceID: "basil"}, nil)
	defer p.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := p.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
