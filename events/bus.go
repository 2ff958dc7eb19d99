package events

import (
	"context"
	"encoding/json"

	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/redis/go-redis/v9"
)

// Channel carries live events between worker and API processes.
const Channel = "pg:events"

type busMessage struct {
	MerchantID string          `json:"merchant_id"`
	Event      string          `json:"event"`
	Data       json.RawMessage `json:"data"`
}

// RedisBus fans live events out through Redis pub/sub so that a worker
// process can reach dashboards connected to an API process.
type RedisBus struct {
	client *redis.Client
	hub    *Hub
}

func NewRedisBus(client *redis.Client, hub *Hub) *RedisBus {
	return &RedisBus{client: client, hub: hub}
}

// Publish satisfies services.LivePublisher. Failures are logged only.
func (b *RedisBus) Publish(ctx context.Context, merchantID, event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling live event %s: %v", event, err)
		return
	}
	payload, err := json.Marshal(busMessage{MerchantID: merchantID, Event: event, Data: raw})
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling live event %s: %v", event, err)
		return
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		utils.ErrorLogger.WithField("merchant_id", merchantID).Warnf("Failed to publish live event %s: %v", event, err)
	}
}

// Run relays bus messages to the local hub until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	utils.InfoLogger.Infof("Subscribed to live event channel %s", Channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(msg.Payload)
		}
	}
}

func (b *RedisBus) dispatch(payload string) {
	var msg busMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		utils.ErrorLogger.Warnf("Discarding malformed live event: %v", err)
		return
	}
	out, err := json.Marshal(Message{Event: msg.Event, Data: msg.Data})
	if err != nil {
		return
	}
	b.hub.broadcast(msg.MerchantID, out)
}
