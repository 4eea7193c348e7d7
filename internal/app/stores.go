// Package app holds wiring shared by the portal server and portalctl.
package app

import (
	"context"
	"time"

	"github.com/ucouncil/portal/backend/go-services/internal/config"
	"github.com/ucouncil/portal/backend/go-services/internal/database"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/internal/editing/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stores maps every document kind to its backing store.
type Stores map[editing.Kind]editing.Store

// MongoStores connects to MongoDB and returns one store per kind plus a close func.
func MongoStores(ctx context.Context, cfg config.MongoDBConfig, attempts int) (Stores, *mongo.Client, func(), error) {
	client, err := database.ConnectWithRetry(ctx, cfg, attempts, time.Second)
	if err != nil {
		return nil, nil, nil, err
	}
	db := client.Database(cfg.Database)
	stores := Stores{}
	for _, k := range editing.Kinds {
		stores[k] = repository.NewMongoRepo(k, db.Collection(k.Collection()))
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return stores, client, closeFn, nil
}

// MemoryStores returns in-process stores; state is lost on exit.
func MemoryStores() Stores {
	stores := Stores{}
	for _, k := range editing.Kinds {
		stores[k] = repository.NewMemoryRepo(k)
	}
	return stores
}
