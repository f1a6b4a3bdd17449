package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"SecondChance/internal/model"
	"SecondChance/internal/repo"
	"SecondChance/internal/storage"

	"go.uber.org/zap"
)

// ItemService инкапсулирует бизнес-логику каталога: CRUD объявлений и привязку загруженных изображений.
type ItemService struct {
	repo    repo.ItemRepository
	storage storage.System
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewItemService(r repo.ItemRepository, s storage.System, logger *zap.SugaredLogger) *ItemService {
	return &ItemService{repo: r, storage: s, logger: logger, now: time.Now}
}

// List возвращает все объявления.
func (s *ItemService) List(ctx context.Context) ([]model.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Get возвращает объявление по id или model.ErrNotFound.
func (s *ItemService) Get(ctx context.Context, id int64) (*model.Item, error) {
	return s.repo.Get(ctx, id)
}

// Create сохраняет файл (если он есть), затем вставляет объявление.
// Если вставка не удалась, сохранённый файл удаляется.
func (s *ItemService) Create(ctx context.Context, in model.ItemInput, up *model.Upload) (*model.Item, error) {
	it := model.Item{CreatedAt: s.now().UTC()}
	in.Apply(&it)

	if up != nil {
		name, err := s.storage.Store(ctx, *up)
		if err != nil {
			return nil, err
		}
		it.Image = name
		it.ImageName = originalName(up.Filename)
	}

	if err := s.repo.Insert(ctx, &it); err != nil {
		if it.Image != "" {
			s.releaseImage(context.WithoutCancel(ctx), it.Image, 0)
		}
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.Infow("item created", "id", it.ID, "image", it.Image)
	return &it, nil
}

// Update накладывает переданные поля на существующее объявление, пересчитывает age_years
// и проставляет updatedAt. id и createdAt не меняются.
func (s *ItemService) Update(ctx context.Context, id int64, in model.ItemInput) (*model.Item, error) {
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in.Apply(it)
	it.ID = id
	it.Touch(s.now())

	if err := s.repo.Replace(ctx, it); err != nil {
		return nil, err
	}
	s.logger.Infow("item updated", "id", id)
	return it, nil
}

// Delete удаляет объявление и, по возможности, его изображение.
func (s *ItemService) Delete(ctx context.Context, id int64) error {
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if it.Image != "" {
		s.releaseImage(ctx, it.Image, id)
	}
	s.logger.Infow("item deleted", "id", id)
	return nil
}

// releaseImage удаляет файл, если на него больше не ссылается ни одно объявление, кроме owner.
// При одинаковых именах загрузок несколько объявлений делят один файл.
// Если проверить ссылки не удалось, файл остаётся.
func (s *ItemService) releaseImage(ctx context.Context, name string, owner int64) {
	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warnw("image kept, cannot check references", "file", name, "error", err)
		return
	}
	for _, other := range items {
		if other.ID != owner && other.Image == name {
			s.logger.Debugw("image kept, still referenced", "file", name, "id", other.ID)
			return
		}
	}
	if err := s.storage.Delete(ctx, name); err != nil {
		s.logger.Warnw("failed to remove item image", "file", name, "error", err)
	}
}

// Ping проверяет доступность хранилища.
func (s *ItemService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func originalName(name string) string {
	return filepath.Base(strings.ReplaceAll(name, `\`, "/"))
}
