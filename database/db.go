// Package database owns the connection to the booking records store.
package database

import (
	"context"
	"time"

	"tripnest/config"
	"tripnest/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

var mongoClient *mongo.Client

// InitDB connects to the booking records store and verifies the
// connection with a primary ping. Startup aborts if the store is
// unreachable; the records repository has no degraded mode.
func InitDB() {
	log := utils.GetLogger()
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(config.AppConfig.DatabaseURL).
		SetAppName("tripnest")
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Fatal("could not connect to the booking records store", zap.Error(err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("booking records store is unreachable", zap.Error(err))
	}

	mongoClient = client
	log.Info("connected to the booking records store")
}

// Client returns the shared MongoDB client. InitDB must have run.
func Client() *mongo.Client {
	return mongoClient
}
