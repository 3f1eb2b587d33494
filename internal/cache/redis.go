package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"example.com/ujenzipro/config"
	"example.com/ujenzipro/internal/models"
)

// CacheClient defines the interface for cache operations
type CacheClient interface {
	GetDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	SetDelivery(ctx context.Context, delivery *models.Delivery) error
	DeleteDelivery(ctx context.Context, id uuid.UUID) error

	GetDeliveryByTracking(ctx context.Context, trackingNumber string) (*models.Delivery, error)
	SetDeliveryByTracking(ctx context.Context, delivery *models.Delivery) error
	DeleteDeliveryByTracking(ctx context.Context, trackingNumber string) error

	GetTrackingUpdates(ctx context.Context, deliveryID uuid.UUID) ([]models.TrackingUpdate, error)
	SetTrackingUpdates(ctx context.Context, deliveryID uuid.UUID, updates []models.TrackingUpdate) error
	DeleteTrackingUpdates(ctx context.Context, deliveryID uuid.UUID) error

	Close() error
}

// RedisClient implements CacheClient using Redis
type RedisClient struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// Disabled returns a cache client whose operations all no-op
func Disabled() CacheClient {
	return &RedisClient{enabled: false}
}

// NewRedisClient creates a new Redis cache client
func NewRedisClient(cfg config.RedisConfig) (CacheClient, error) {
	if !cfg.Enabled {
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:  client,
		enabled: true,
		ttl:     time.Hour,
	}, nil
}

// Prefix keys to avoid collisions
func deliveryKey(id uuid.UUID) string {
	return fmt.Sprintf("delivery:%s", id.String())
}

func trackingNumberKey(trackingNumber string) string {
	return fmt.Sprintf("tracking:%s", trackingNumber)
}

func trackingUpdatesKey(deliveryID uuid.UUID) string {
	return fmt.Sprintf("tracking_updates:%s", deliveryID.String())
}

// GetDelivery retrieves a delivery from cache
func (c *RedisClient) GetDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, deliveryKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var delivery models.Delivery
	if err := json.Unmarshal(data, &delivery); err != nil {
		return nil, err
	}

	return &delivery, nil
}

// SetDelivery caches a delivery
func (c *RedisClient) SetDelivery(ctx context.Context, delivery *models.Delivery) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(delivery)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, deliveryKey(delivery.ID), data, c.ttl).Err()
}

// DeleteDelivery removes a delivery from cache
func (c *RedisClient) DeleteDelivery(ctx context.Context, id uuid.UUID) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, deliveryKey(id)).Err()
}

// GetDeliveryByTracking retrieves a delivery by tracking number from cache
func (c *RedisClient) GetDeliveryByTracking(ctx context.Context, trackingNumber string) (*models.Delivery, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, trackingNumberKey(trackingNumber)).Bytes()
	if err != nil {
		return nil, err
	}

	var delivery models.Delivery
	if err := json.Unmarshal(data, &delivery); err != nil {
		return nil, err
	}

	return &delivery, nil
}

// SetDeliveryByTracking caches a delivery under its tracking number
func (c *RedisClient) SetDeliveryByTracking(ctx context.Context, delivery *models.Delivery) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(delivery)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, trackingNumberKey(delivery.TrackingNumber), data, c.ttl).Err()
}

// DeleteDeliveryByTracking removes a tracking number entry from cache
func (c *RedisClient) DeleteDeliveryByTracking(ctx context.Context, trackingNumber string) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, trackingNumberKey(trackingNumber)).Err()
}

// GetTrackingUpdates retrieves a delivery's ledger from cache
func (c *RedisClient) GetTrackingUpdates(ctx context.Context, deliveryID uuid.UUID) ([]models.TrackingUpdate, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, trackingUpdatesKey(deliveryID)).Bytes()
	if err != nil {
		return nil, err
	}

	var updates []models.TrackingUpdate
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// SetTrackingUpdates caches a delivery's ledger
func (c *RedisClient) SetTrackingUpdates(ctx context.Context, deliveryID uuid.UUID, updates []models.TrackingUpdate) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(updates)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, trackingUpdatesKey(deliveryID), data, c.ttl).Err()
}

// DeleteTrackingUpdates removes a delivery's ledger from cache
func (c *RedisClient) DeleteTrackingUpdates(ctx context.Context, deliveryID uuid.UUID) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, trackingUpdatesKey(deliveryID)).Err()
}

// IsCacheMiss reports whether the error is a cache miss rather than a failure
func IsCacheMiss(err error) bool {
	return err == redis.Nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}

	return c.client.Close()
}
