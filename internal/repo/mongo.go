package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SecondChance/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const countersCollection = "counters"

type commentDocument struct {
	Author  string `bson:"author"`
	Comment string `bson:"comment"`
}

// itemDocument — представление объявления в коллекции secondChanceItems.
// Поля с loose-типами читают и документы, где значения формы сохранены строками.
type itemDocument struct {
	OID         primitive.ObjectID `bson:"_id,omitempty"`
	ID          int64              `bson:"id"`
	Name        string             `bson:"name,omitempty"`
	Category    string             `bson:"category,omitempty"`
	Condition   string             `bson:"condition,omitempty"`
	PostedBy    string             `bson:"posted_by,omitempty"`
	Zipcode     looseString        `bson:"zipcode,omitempty"`
	DateAdded   looseInt           `bson:"date_added,omitempty"`
	AgeDays     looseFloat         `bson:"age_days,omitempty"`
	AgeYears    looseString        `bson:"age_years,omitempty"`
	Description string             `bson:"description,omitempty"`
	Image       string             `bson:"image,omitempty"`
	ImageName   string             `bson:"image_name,omitempty"`
	Comments    looseComments      `bson:"comments,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   *time.Time         `bson:"updatedAt,omitempty"`
}

func toDocument(it *model.Item) itemDocument {
	d := itemDocument{
		ID:          it.ID,
		Name:        it.Name,
		Category:    it.Category,
		Condition:   it.Condition,
		PostedBy:    it.PostedBy,
		Zipcode:     looseString(it.Zipcode),
		DateAdded:   looseInt(it.DateAdded),
		AgeDays:     looseFloat{v: it.AgeDays},
		AgeYears:    looseString(it.AgeYears),
		Description: it.Description,
		Image:       it.Image,
		ImageName:   it.ImageName,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	for _, c := range it.Comments {
		d.Comments = append(d.Comments, commentDocument{Author: c.Author, Comment: c.Comment})
	}
	return d
}

func (d itemDocument) item() model.Item {
	it := model.Item{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		Condition:   d.Condition,
		PostedBy:    d.PostedBy,
		Zipcode:     string(d.Zipcode),
		DateAdded:   int64(d.DateAdded),
		AgeDays:     d.AgeDays.v,
		AgeYears:    string(d.AgeYears),
		Description: d.Description,
		Image:       d.Image,
		ImageName:   d.ImageName,
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if !d.OID.IsZero() {
		it.InternalID = d.OID.Hex()
	}
	if d.UpdatedAt != nil {
		u := d.UpdatedAt.UTC()
		it.UpdatedAt = &u
	}
	for _, c := range d.Comments {
		it.Comments = append(it.Comments, model.Comment{Author: c.Author, Comment: c.Comment})
	}
	return it
}

type mongoItemRepo struct {
	client   *mongo.Client
	items    *mongo.Collection
	counters *mongo.Collection
	logger   *zap.SugaredLogger
}

// ConnectMongo подключается к MongoDB, проверяет соединение и создаёт уникальный индекс по id.
func ConnectMongo(ctx context.Context, uri, database string, logger *zap.SugaredLogger) (ItemRepository, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, classify("connect mongo", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classify("ping mongo", err)
	}

	r := NewMongoItemRepository(client.Database(database), logger)
	if err := r.(*mongoItemRepo).ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

// NewMongoItemRepository создаёт репозиторий поверх уже открытой базы.
func NewMongoItemRepository(db *mongo.Database, logger *zap.SugaredLogger) ItemRepository {
	return &mongoItemRepo{
		client:   db.Client(),
		items:    db.Collection(model.CollectionName),
		counters: db.Collection(countersCollection),
		logger:   logger.With("store", "mongo"),
	}
}

func (r *mongoItemRepo) ensureIndexes(ctx context.Context) error {
	_, err := r.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("id_unique"),
	})
	if err != nil {
		return classify("create id index", err)
	}
	return nil
}

func (r *mongoItemRepo) List(ctx context.Context) ([]model.Item, error) {
	cur, err := r.items.Find(ctx, bson.D{})
	if err != nil {
		return nil, classify("list items", err)
	}
	var docs []itemDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("list items", err)
	}
	items := make([]model.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.item())
	}
	return items, nil
}

func (r *mongoItemRepo) Get(ctx context.Context, id int64) (*model.Item, error) {
	var d itemDocument
	err := r.items.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, classify("get item", err)
	}
	it := d.item()
	return &it, nil
}

func (r *mongoItemRepo) Insert(ctx context.Context, it *model.Item) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	it.ID = id

	d := toDocument(it)
	d.OID = primitive.NewObjectID()
	if _, err := r.items.InsertOne(ctx, d); err != nil {
		return classify("insert item", err)
	}
	it.InternalID = d.OID.Hex()
	return nil
}

// nextID bumps the counter document to max(seq, highest stored id) + 1 in a single update.
func (r *mongoItemRepo) nextID(ctx context.Context) (int64, error) {
	maxID, err := r.maxID(ctx)
	if err != nil {
		return 0, err
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "seq", Value: bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$max", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$seq", int64(0)}}},
				maxID,
			}}},
			int64(1),
		}}}}}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err = r.counters.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: model.CollectionName}}, update, opts).Decode(&counter)
	if err != nil {
		return 0, classify("next item id", err)
	}
	return counter.Seq, nil
}

func (r *mongoItemRepo) maxID(ctx context.Context) (int64, error) {
	var d struct {
		ID int64 `bson:"id"`
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}}).SetProjection(bson.D{{Key: "id", Value: 1}})
	err := r.items.FindOne(ctx, bson.D{}, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, classify("max item id", err)
	}
	return d.ID, nil
}

func (r *mongoItemRepo) Replace(ctx context.Context, it *model.Item) error {
	d := toDocument(it)
	res, err := r.items.ReplaceOne(ctx, bson.D{{Key: "id", Value: it.ID}}, d)
	if err != nil {
		return classify("replace item", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *mongoItemRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.items.DeleteOne(ctx, bson.D{{Key: "id", Value: id}})
	if err != nil {
		return classify("delete item", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *mongoItemRepo) Ping(ctx context.Context) error {
	return classify("ping", r.client.Ping(ctx, readpref.Primary()))
}

func (r *mongoItemRepo) Close(ctx context.Context) error {
	if err := r.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
