// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"confiido/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client (slot listings, session lookups).
	CacheClient *redis.Client
	// TrackerCacheClient is the dedicated client for countdown tracker state.
	TrackerCacheClient *redis.Client
)

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := CacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitTrackerCache initializes the Redis client backing countdown tracker state.
func InitTrackerCache() {
	TrackerCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTrackerDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := TrackerCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Tracker Cache): %v", err)
	}
}

// GetTrackerCacheClient returns the Redis client for countdown tracker state.
func GetTrackerCacheClient() *redis.Client {
	if TrackerCacheClient == nil {
		InitTrackerCache()
	}
	return TrackerCacheClient
}
