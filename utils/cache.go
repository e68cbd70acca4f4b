package utils

import (
	"context"
	"log"
	"time"

	"slothold/config"

	"github.com/go-redis/redis/v8"
)

// StoreClient is the Redis client backing the reservation engine. All hold
// state (slot locks, reservation records, holder indices) lives here under
// native TTLs.
var StoreClient *redis.Client

// InitStore initializes the Redis reservation store client.
func InitStore() {
	StoreClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReservationDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := StoreClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Reservation Store): %v", err)
	}
}

// GetStoreClient returns the reservation store client.
func GetStoreClient() *redis.Client {
	if StoreClient == nil {
		InitStore()
	}
	return StoreClient
}
