package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SecondChance/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// itemRecord — строка таблицы secondChanceItems: числовой id и документ объявления в JSON.
type itemRecord struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	Doc       model.Item `gorm:"serializer:json;type:text;not null"`
	CreatedAt time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}

func (itemRecord) TableName() string { return model.CollectionName }

func (r itemRecord) item() model.Item {
	it := r.Doc
	it.ID = r.ID
	it.InternalID = ""
	it.CreatedAt = r.CreatedAt.UTC()
	if r.UpdatedAt != nil {
		u := r.UpdatedAt.UTC()
		it.UpdatedAt = &u
	}
	return it
}

// InitDB открывает БД через gorm и мигрирует таблицу объявлений.
// driver: "postgres" или "sqlite" (modernc, без cgo).
func InitDB(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DSN for %s", driver)
	}

	var dial gorm.Dialector
	switch driver {
	case "postgres":
		dial = postgres.Open(dsn)
	case "sqlite":
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// sqlite допускает одного писателя
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&itemRecord{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}

type sqlItemRepo struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewSQLItemRepository создаёт реализацию репозитория поверх gorm.
func NewSQLItemRepository(db *gorm.DB, logger *zap.SugaredLogger) ItemRepository {
	return &sqlItemRepo{db: db, logger: logger.With("store", "sql")}
}

func (r *sqlItemRepo) List(ctx context.Context) ([]model.Item, error) {
	var recs []itemRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, classify("list items", err)
	}
	items := make([]model.Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.item())
	}
	return items, nil
}

func (r *sqlItemRepo) Get(ctx context.Context, id int64) (*model.Item, error) {
	var rec itemRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, classify("get item", err)
	}
	it := rec.item()
	return &it, nil
}

func (r *sqlItemRepo) Insert(ctx context.Context, it *model.Item) error {
	rec := itemRecord{Doc: *it, CreatedAt: it.CreatedAt, UpdatedAt: it.UpdatedAt}
	rec.Doc.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return classify("insert item", err)
	}
	it.ID = rec.ID
	it.InternalID = ""
	return nil
}

func (r *sqlItemRepo) Replace(ctx context.Context, it *model.Item) error {
	rec := itemRecord{ID: it.ID, Doc: *it, CreatedAt: it.CreatedAt, UpdatedAt: it.UpdatedAt}
	res := r.db.WithContext(ctx).
		Model(&itemRecord{ID: it.ID}).
		Select("Doc", "CreatedAt", "UpdatedAt").
		Updates(&rec)
	if res.Error != nil {
		return classify("replace item", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *sqlItemRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&itemRecord{}, "id = ?", id)
	if res.Error != nil {
		return classify("delete item", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *sqlItemRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return classify("ping", err)
	}
	return classify("ping", sqlDB.PingContext(ctx))
}

func (r *sqlItemRepo) Close(context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
