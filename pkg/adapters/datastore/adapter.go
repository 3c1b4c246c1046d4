package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/loomhq/loom/pkg/adapter"
)

// Datastore performs a single get, set or delete against Redis.
// Set and delete are idempotent, so executor-level retries of
// transient failures are safe without coordination.
type Datastore struct {
	Operation string
	Key       string
	Value     any
	TTL       time.Duration

	client redis.UniversalClient
}

// New builds a datastore adapter from resolved configuration.
func New(config map[string]any) (*Datastore, error) {
	operation, _ := config["operation"].(string)
	key, _ := config["key"].(string)

	if operation != "get" && operation != "set" && operation != "delete" {
		return nil, adapter.NewError(adapter.KindInvalidConfig,
			fmt.Sprintf("unknown datastore operation %q", operation))
	}

	if key == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "datastore requires a key")
	}

	if operation == "set" {
		if _, ok := config["value"]; !ok {
			return nil, adapter.NewError(adapter.KindInvalidConfig, "set requires a value")
		}
	}

	options, err := connectionOptions(config["connection"])
	if err != nil {
		return nil, err
	}

	var ttl time.Duration
	if seconds, ok := config["ttl_seconds"].(float64); ok && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}

	return &Datastore{
		Operation: operation,
		Key:       key,
		Value:     config["value"],
		TTL:       ttl,
		client:    redis.NewUniversalClient(options),
	}, nil
}

func connectionOptions(value any) (*redis.UniversalOptions, error) {
	connection, ok := value.(map[string]any)
	if !ok {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "datastore requires connection settings")
	}

	addr, _ := connection["addr"].(string)
	if addr == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "datastore connection requires an addr")
	}

	password, _ := connection["password"].(string)

	db := 0
	if rawDB, ok := connection["db"].(float64); ok {
		db = int(rawDB)
	}

	return &redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: password,
		DB:       db,
	}, nil
}

func (d *Datastore) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("adapter", "datastore", "operation", d.Operation, "key", d.Key)
	logger.Info("Executing datastore operation")

	defer func() {
		if err := d.client.Close(); err != nil {
			logger.Warn("Failed to close datastore client", "error", err)
		}
	}()

	switch d.Operation {
	case "get":
		return d.get(ctx)
	case "set":
		return d.set(ctx)
	default:
		return d.delete(ctx)
	}
}

func (d *Datastore) get(ctx context.Context) (map[string]any, error) {
	raw, err := d.client.Get(ctx, d.Key).Result()
	if errors.Is(err, redis.Nil) {
		return map[string]any{"key": d.Key, "found": false}, nil
	}

	if err != nil {
		return nil, adapter.WrapError(adapter.KindUnreachable, "datastore read failed", err)
	}

	var value any
	if jsonErr := json.Unmarshal([]byte(raw), &value); jsonErr != nil {
		value = raw
	}

	return map[string]any{"key": d.Key, "found": true, "value": value}, nil
}

func (d *Datastore) set(ctx context.Context) (map[string]any, error) {
	encoded, err := json.Marshal(d.Value)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindRejected, "value is not JSON-encodable", err)
	}

	if err := d.client.Set(ctx, d.Key, encoded, d.TTL).Err(); err != nil {
		return nil, adapter.WrapError(adapter.KindUnreachable, "datastore write failed", err)
	}

	return map[string]any{"key": d.Key, "stored": true}, nil
}

func (d *Datastore) delete(ctx context.Context) (map[string]any, error) {
	removed, err := d.client.Del(ctx, d.Key).Result()
	if err != nil {
		return nil, adapter.WrapError(adapter.KindUnreachable, "datastore delete failed", err)
	}

	return map[string]any{"key": d.Key, "deleted": removed > 0}, nil
}
