package api

import (
	"context"
	"fmt"
	"log"
	"time"

	guard_store "github.com/ethanbaker/credlink/internal/stores/guard"
	"github.com/ethanbaker/credlink/pkg/guard"
	"github.com/ethanbaker/credlink/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const (
	GuardMemory = "memory"
	GuardMySQL  = "mysql"
	GuardRedis  = "redis"
)

// GuardBackend is the guard chosen from the settings along with how to release its resources
type GuardBackend struct {
	Guard guard.Guard
	Name  string
	close func() error
}

// Close releases the backend's connections
func (b *GuardBackend) Close() {
	if b.close == nil {
		return
	}
	if err := b.close(); err != nil {
		log.Printf("[API-MAIN]: Failed to close %s guard: %v", b.Name, err)
	}
}

// NewGuard creates the guard backend: Redis when REDIS_ADDR is set, then MySQL when
// MYSQL_DATABASE is set, otherwise process memory
func NewGuard(settings *utils.Settings) (*GuardBackend, error) {
	switch {
	case settings.Redis != nil:
		client := redis.NewClient(&redis.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", settings.Redis.Addr, err)
		}

		return &GuardBackend{
			Guard: guard_store.NewRedisGuard(client, settings.Guard),
			Name:  GuardRedis,
			close: client.Close,
		}, nil

	case settings.MySQL != nil:
		store, err := guard_store.NewMySQLGuard(settings.MySQL.FormatDSN(), settings.Guard)
		if err != nil {
			return nil, err
		}

		return &GuardBackend{
			Guard: store,
			Name:  GuardMySQL,
			close: store.Close,
		}, nil

	default:
		log.Println("[API-MAIN]: Warning, MYSQL_DATABASE and REDIS_ADDR not set, using in-memory guard (request ids will not persist across restarts)")

		return &GuardBackend{
			Guard: guard_store.NewInMemoryGuard(settings.Guard),
			Name:  GuardMemory,
		}, nil
	}
}
