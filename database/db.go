package database

import (
	"context"
	"log"
	"time"

	"slothold/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoClient backs the booking archive. Confirmed bookings are the only
// data persisted here; all hold state lives in the Redis reservation store.
var MongoClient *mongo.Client

// InitDB connects and verifies the booking archive client.
func InitDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.AppConfig.DatabaseURL))
	if err != nil {
		log.Fatalf("Failed to connect to the booking archive: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Booking archive is unreachable: %v", err)
	}
	MongoClient = client
	log.Println("Connected to the booking archive")
}
