package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"SecondChance/internal/model"

	bolt "github.com/boltdb/bolt"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// ItemRepository определяет контракт хранилища объявлений для слоя сервиса.
// Реализации: Mongo (по умолчанию), SQL через gorm, bolt, redis.
type ItemRepository interface {
	// List возвращает все объявления в порядке хранилища. Пустой результат — пустой срез, не nil.
	List(ctx context.Context) ([]model.Item, error)

	// Get возвращает объявление по числовому id или model.ErrNotFound.
	Get(ctx context.Context, id int64) (*model.Item, error)

	// Insert атомарно назначает it.ID (и it.InternalID, если у хранилища он есть) и сохраняет запись.
	Insert(ctx context.Context, it *model.Item) error

	// Replace перезаписывает объявление с тем же id или возвращает model.ErrNotFound.
	Replace(ctx context.Context, it *model.Item) error

	// Delete удаляет объявление или возвращает model.ErrNotFound.
	Delete(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// classify marks connectivity failures of any backend as model.ErrStoreUnavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, bolt.ErrDatabaseNotOpen),
		errors.Is(err, bolt.ErrTimeout),
		errors.Is(err, redis.ErrClosed),
		mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.As(err, &netErr):
		return fmt.Errorf("%s: %w: %v", op, model.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
