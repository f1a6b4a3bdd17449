package repo

import (
	"context"
	"fmt"

	"SecondChance/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	_ ItemRepository = (*mongoItemRepo)(nil)
	_ ItemRepository = (*sqlItemRepo)(nil)
	_ ItemRepository = (*boltItemRepo)(nil)
	_ ItemRepository = (*redisItemRepo)(nil)
)

// Open открывает хранилище, выбранное в cfg.DBDriver. Вызывается один раз при старте;
// закрытие — через ItemRepository.Close при остановке сервера.
func Open(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (ItemRepository, error) {
	switch cfg.DBDriver {
	case "mongo":
		return ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDB, logger)
	case "postgres", "sqlite":
		db, err := InitDB(cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return NewSQLItemRepository(db, logger), nil
	case "bolt":
		return OpenBolt(cfg.BoltPath, logger)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, classify("ping redis", err)
		}
		return NewRedisItemRepository(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}
