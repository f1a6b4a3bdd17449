package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"SecondChance/internal/model"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	redisSeqKey   = model.CollectionName + ":seq"
	redisIndexKey = model.CollectionName + ":index"
)

func redisItemKey(id int64) string {
	return model.CollectionName + ":" + strconv.FormatInt(id, 10)
}

// nextIDScript returns max(seq, highest indexed id) + 1 and stores it as the new seq.
var nextIDScript = redis.NewScript(`
local seq = tonumber(redis.call('GET', KEYS[1]) or '0')
local top = redis.call('ZREVRANGE', KEYS[2], 0, 0, 'WITHSCORES')
if top[2] then
  local m = tonumber(top[2])
  if m > seq then seq = m end
end
seq = seq + 1
redis.call('SET', KEYS[1], seq)
return seq
`)

type redisItemRepo struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedisItemRepository хранит объявления как JSON по ключу secondChanceItems:<id>
// и упорядоченный индекс id в sorted set.
func NewRedisItemRepository(client *redis.Client, logger *zap.SugaredLogger) ItemRepository {
	return &redisItemRepo{client: client, logger: logger.With("store", "redis")}
}

func (r *redisItemRepo) List(ctx context.Context) ([]model.Item, error) {
	ids, err := r.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, classify("list items", err)
	}
	items := make([]model.Item, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = model.CollectionName + ":" + id
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classify("list items", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// removed between ZRANGE and MGET
			continue
		}
		var it model.Item
		if err := json.Unmarshal([]byte(s), &it); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *redisItemRepo) Get(ctx context.Context, id int64) (*model.Item, error) {
	data, err := r.client.Get(ctx, redisItemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, classify("get item", err)
	}
	var it model.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	return &it, nil
}

func (r *redisItemRepo) Insert(ctx context.Context, it *model.Item) error {
	id, err := nextIDScript.Run(ctx, r.client, []string{redisSeqKey, redisIndexKey}).Int64()
	if err != nil {
		return classify("next item id", err)
	}

	stored := *it
	stored.ID = id
	stored.InternalID = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisItemKey(id), data, 0)
	pipe.ZAdd(ctx, redisIndexKey, &redis.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
	if _, err := pipe.Exec(ctx); err != nil {
		return classify("insert item", err)
	}
	it.ID = id
	it.InternalID = ""
	return nil
}

func (r *redisItemRepo) Replace(ctx context.Context, it *model.Item) error {
	stored := *it
	stored.InternalID = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	ok, err := r.client.SetXX(ctx, redisItemKey(it.ID), data, 0).Result()
	if errors.Is(err, redis.Nil) {
		return model.ErrNotFound
	}
	if err != nil {
		return classify("replace item", err)
	}
	if !ok {
		return model.ErrNotFound
	}
	return nil
}

func (r *redisItemRepo) Delete(ctx context.Context, id int64) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, redisItemKey(id))
	pipe.ZRem(ctx, redisIndexKey, strconv.FormatInt(id, 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return classify("delete item", err)
	}
	if del.Val() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *redisItemRepo) Ping(ctx context.Context) error {
	return classify("ping", r.client.Ping(ctx).Err())
}

func (r *redisItemRepo) Close(context.Context) error {
	return r.client.Close()
}
