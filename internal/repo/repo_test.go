package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"SecondChance/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestSQL инициализирует in-memory SQLite (modernc.org/sqlite) для тестов репозитория
func newTestSQL(t *testing.T) ItemRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := InitDB("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	r := NewSQLItemRepository(db, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func newTestBolt(t *testing.T) ItemRepository {
	t.Helper()
	r, err := OpenBolt(filepath.Join(t.TempDir(), "items.bolt"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("failed to open bolt: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func newTestRedis(t *testing.T) (ItemRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	r := NewRedisItemRepository(client, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, mr
}

// newTestMongo подключается к реальному MongoDB из MONGO_TEST_URL, иначе тест пропускается.
func newTestMongo(t *testing.T) ItemRepository {
	t.Helper()
	url := os.Getenv("MONGO_TEST_URL")
	if url == "" {
		t.Skip("MONGO_TEST_URL not set")
	}
	ctx := context.Background()
	dbName := fmt.Sprintf("secondchance_test_%d", os.Getpid())
	r, err := ConnectMongo(ctx, url, dbName, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("failed to connect mongo: %v", err)
	}
	t.Cleanup(func() {
		_ = r.(*mongoItemRepo).items.Database().Drop(ctx)
		_ = r.Close(ctx)
	})
	return r
}

func mkItem(name string) model.Item {
	return model.Item{Name: name, Category: "Home", Condition: "New"}
}

func stores(t *testing.T) map[string]func(t *testing.T) ItemRepository {
	t.Helper()
	return map[string]func(t *testing.T) ItemRepository{
		"sqlite": newTestSQL,
		"bolt":   newTestBolt,
		"redis": func(t *testing.T) ItemRepository {
			r, _ := newTestRedis(t)
			return r
		},
		"mongo": newTestMongo,
	}
}

func TestRepo_Stores(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			runContract(t, open(t))
		})
	}
}

func TestClassify(t *testing.T) {
	require.NoError(t, classify("op", nil))
	require.ErrorIs(t, classify("op", model.ErrNotFound), model.ErrNotFound)
	require.ErrorIs(t, classify("op", context.DeadlineExceeded), model.ErrStoreUnavailable)
	err := classify("op", fmt.Errorf("boom"))
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrStoreUnavailable)
}
