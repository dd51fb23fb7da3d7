package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// IntentRecord is the cart identity stashed between createPaymentIntent and
// verification. Only identifiers and the quoted amount are kept; pricing is
// recomputed from the live catalog at verification time.
type IntentRecord struct {
	GatewayOrderID string      `json:"gateway_order_id"`
	PoojaID        uuid.UUID   `json:"pooja_id"`
	ChadhavaIDs    []uuid.UUID `json:"chadhava_ids"`
	Amount         int64       `json:"amount"`
}

func (c *Cache) SaveIntent(ctx context.Context, rec IntentRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "intent:"+rec.GatewayOrderID, data, ttl).Err()
}

func (c *Cache) GetIntent(ctx context.Context, gatewayOrderID string) (*IntentRecord, error) {
	val, err := c.client.Get(ctx, "intent:"+gatewayOrderID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec IntentRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
