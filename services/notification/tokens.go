package notification

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// fcmTokenPrefix is where the auth layer publishes device tokens.
const fcmTokenPrefix = "fcm:"

// RedisTokenSource reads FCM tokens published by the auth layer.
type RedisTokenSource struct {
	Client *redis.Client
}

func NewRedisTokenSource(client *redis.Client) *RedisTokenSource {
	return &RedisTokenSource{Client: client}
}

func (r *RedisTokenSource) FCMToken(ctx context.Context, userID string) (string, error) {
	token, err := r.Client.Get(ctx, fcmTokenPrefix+userID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return token, err
}
