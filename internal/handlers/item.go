package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"SecondChance/internal/config"
	"SecondChance/internal/model"
	"SecondChance/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	imageField = "image"
	// multipart parts beyond this size are spooled to disk by net/http
	multipartMemory = 10 << 20
	// room for the form fields on top of the file itself
	formOverhead = 1 << 20
)

// ItemHandler обрабатывает CRUD-запросы каталога объявлений.
type ItemHandler struct {
	ItemService *service.ItemService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewItemHandler создаёт хендлер items
func NewItemHandler(itemService *service.ItemService, logger *zap.SugaredLogger, cfg *config.Config) *ItemHandler {
	return &ItemHandler{ItemService: itemService, Logger: logger, Config: cfg}
}

// List — GET / : все объявления.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.ItemService.List(r.Context())
	if err != nil {
		RespondError(w, h.Logger, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, items)
}

// Create — POST / : multipart (поля + файл image), urlencoded или JSON.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.UploadMaxBytes+formOverhead)

	in, up, cleanup, err := h.decodeInput(r, true)
	defer cleanup()
	if err != nil {
		RespondError(w, h.Logger, r, err)
		return
	}

	it, err := h.ItemService.Create(r.Context(), in, up)
	if err != nil {
		RespondError(w, h.Logger, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, it)
}

// Get — GET /{id}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		RespondMessage(w, http.StatusNotFound, msgNotFound)
		return
	}
	it, err := h.ItemService.Get(r.Context(), id)
	if err != nil {
		RespondError(w, h.Logger, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, it)
}

// Update — PUT /{id} : поля в JSON или форме, без файла.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		RespondMessage(w, http.StatusNotFound, msgNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, formOverhead)

	in, _, cleanup, err := h.decodeInput(r, false)
	defer cleanup()
	if err != nil {
		RespondError(w, h.Logger, r, err)
		return
	}

	if _, err := h.ItemService.Update(r.Context(), id, in); err != nil {
		RespondError(w, h.Logger, r, err)
		return
	}
	RespondMessage(w, http.StatusOK, msgUpdated)
}

// Delete — DELETE /{id}.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		RespondMessage(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := h.ItemService.Delete(r.Context(), id); err != nil {
		RespondError(w, h.Logger, r, err)
		return
	}
	RespondMessage(w, http.StatusOK, msgDeleted)
}

// Health — GET /healthz : проверка доступности хранилища.
func (h *ItemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.ItemService.Ping(r.Context()); err != nil {
		h.Logger.Errorw("health check failed", "error", err)
		http.Error(w, msgStoreUnavailable, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// parseID разбирает id как десятичное int64; всё остальное трактуется как отсутствующее объявление.
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeInput выбирает разбор тела по Content-Type. cleanup удаляет временные файлы multipart.
func (h *ItemHandler) decodeInput(r *http.Request, allowFile bool) (model.ItemInput, *model.Upload, func(), error) {
	noop := func() {}

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return model.ItemInput{}, nil, noop, fmt.Errorf("%w: bad Content-Type: %v", model.ErrValidation, err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "multipart/form-data":
		return h.decodeMultipart(r, allowFile)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return model.ItemInput{}, nil, noop, bodyError(err)
		}
		in, err := model.DecodeForm(r.PostForm)
		return in, nil, noop, err
	case "", "application/json":
		in, err := model.DecodeJSON(r.Body)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return in, nil, noop, model.ErrFileTooLarge
		}
		return in, nil, noop, err
	default:
		return model.ItemInput{}, nil, noop, fmt.Errorf("%w: unsupported Content-Type %q", model.ErrValidation, mediaType)
	}
}

func (h *ItemHandler) decodeMultipart(r *http.Request, allowFile bool) (model.ItemInput, *model.Upload, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return model.ItemInput{}, nil, noop, bodyError(err)
	}
	form := r.MultipartForm
	cleanup := func() {
		if err := form.RemoveAll(); err != nil {
			h.Logger.Warnw("failed to remove multipart temp files", "error", err)
		}
	}

	in, err := model.DecodeForm(url.Values(form.Value))
	if err != nil {
		return model.ItemInput{}, nil, cleanup, err
	}

	var up *model.Upload
	for field, files := range form.File {
		if field != imageField || !allowFile {
			return model.ItemInput{}, nil, cleanup, fmt.Errorf("%w: unexpected file field %q", model.ErrValidation, field)
		}
		if len(files) == 0 {
			continue
		}
		if len(files) > 1 {
			return model.ItemInput{}, nil, cleanup, fmt.Errorf("%w: only one %q file allowed", model.ErrUpload, imageField)
		}
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			return model.ItemInput{}, nil, cleanup, fmt.Errorf("%w: open %s: %v", model.ErrUpload, fh.Filename, err)
		}
		prev := cleanup
		cleanup = func() {
			_ = f.Close()
			prev()
		}
		up = &model.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
	}
	return in, up, cleanup, nil
}

// bodyError отличает превышение лимита тела от некорректного тела.
func bodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return model.ErrFileTooLarge
	}
	return fmt.Errorf("%w: %v", model.ErrValidation, err)
}
