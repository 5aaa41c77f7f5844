package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	deliveryKeyPrefix = "webhook:delivery:"
	deliveryPending   = "pending"
)

// DeliveryRepository remembers webhook deliveries by idempotency key so a
// redelivered request maps back to the ticket it already created.
type DeliveryRepository interface {
	// Reserve claims key. When the key is already claimed it returns false and
	// the stored ticket id, or "" while the first delivery is still running.
	Reserve(ctx context.Context, key string, ttl time.Duration) (reserved bool, ticketID string, err error)
	Complete(ctx context.Context, key, ticketID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type deliveryRepository struct {
	client *redis.Client
}

// NewDeliveryRepository builds a Redis-backed repository.
func NewDeliveryRepository(client *redis.Client) DeliveryRepository {
	return &deliveryRepository{client: client}
}

func (r *deliveryRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	ok, err := r.client.SetNX(ctx, deliveryKeyPrefix+key, deliveryPending, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}
	val, err := r.client.Get(ctx, deliveryKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = r.client.SetNX(ctx, deliveryKeyPrefix+key, deliveryPending, ttl).Result()
		return ok, "", err
	}
	if err != nil {
		return false, "", err
	}
	if val == deliveryPending {
		return false, "", nil
	}
	return false, val, nil
}

func (r *deliveryRepository) Complete(ctx context.Context, key, ticketID string, ttl time.Duration) error {
	return r.client.Set(ctx, deliveryKeyPrefix+key, ticketID, ttl).Err()
}

func (r *deliveryRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, deliveryKeyPrefix+key).Err()
}
