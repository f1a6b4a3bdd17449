package repo

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"SecondChance/internal/model"

	bolt "github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var itemsBucket = []byte(model.CollectionName)

type boltItemRepo struct {
	db     *bolt.DB
	logger *zap.SugaredLogger
}

// OpenBolt открывает (или создаёт) файл bolt и бакет объявлений.
func OpenBolt(path string, logger *zap.SugaredLogger) (ItemRepository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, classify("open bolt", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(itemsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &boltItemRepo{db: db, logger: logger.With("store", "bolt")}, nil
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func (r *boltItemRepo) List(ctx context.Context) ([]model.Item, error) {
	items := []model.Item{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).ForEach(func(k, v []byte) error {
			var it model.Item
			if err := json.Unmarshal(v, &it); err != nil {
				return fmt.Errorf("decode item %d: %w", btoi(k), err)
			}
			items = append(items, it)
			return nil
		})
	})
	if err != nil {
		return nil, classify("list items", err)
	}
	return items, nil
}

func (r *boltItemRepo) Get(ctx context.Context, id int64) (*model.Item, error) {
	var it model.Item
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(itemsBucket).Get(itob(id))
		if v == nil {
			return model.ErrNotFound
		}
		return json.Unmarshal(v, &it)
	})
	if err != nil {
		return nil, classify("get item", err)
	}
	return &it, nil
}

// Insert reads the last key and the bucket sequence inside one write transaction;
// bolt runs write transactions one at a time.
func (r *boltItemRepo) Insert(ctx context.Context, it *model.Item) error {
	if err := ctx.Err(); err != nil {
		return classify("insert item", err)
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(itemsBucket)

		next := int64(b.Sequence())
		if k, _ := b.Cursor().Last(); k != nil && btoi(k) > next {
			next = btoi(k)
		}
		next++
		if err := b.SetSequence(uint64(next)); err != nil {
			return err
		}

		stored := *it
		stored.ID = next
		stored.InternalID = ""
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		if err := b.Put(itob(next), data); err != nil {
			return err
		}
		it.ID = next
		it.InternalID = ""
		return nil
	})
	return classify("insert item", err)
}

func (r *boltItemRepo) Replace(ctx context.Context, it *model.Item) error {
	if err := ctx.Err(); err != nil {
		return classify("replace item", err)
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(itemsBucket)
		key := itob(it.ID)
		if b.Get(key) == nil {
			return model.ErrNotFound
		}
		stored := *it
		stored.InternalID = ""
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	return classify("replace item", err)
}

func (r *boltItemRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return classify("delete item", err)
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(itemsBucket)
		key := itob(id)
		if b.Get(key) == nil {
			return model.ErrNotFound
		}
		return b.Delete(key)
	})
	return classify("delete item", err)
}

func (r *boltItemRepo) Ping(ctx context.Context) error {
	return classify("ping", r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(itemsBucket) == nil {
			return fmt.Errorf("bucket %s missing", model.CollectionName)
		}
		return nil
	}))
}

func (r *boltItemRepo) Close(context.Context) error {
	return r.db.Close()
}
