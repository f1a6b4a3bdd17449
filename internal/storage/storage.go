// Package storage хранит загруженные изображения объявлений в каталоге на диске.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"SecondChance/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Naming modes for stored files.
const (
	NamingOriginal = "original"
	NamingUUID     = "uuid"
)

var (
	ErrInvalidKey       = errors.New("storage: invalid key")
	ErrPermissionDenied = errors.New("storage: permission denied")
)

// System описывает хранилище загруженных файлов.
type System interface {
	// Store writes the upload and returns the stored file name.
	// Files with the same name are overwritten.
	Store(ctx context.Context, up model.Upload) (string, error)
	// Delete is idempotent: a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Dir is the directory served under /images/.
	Dir() string
}

// Options задаёт параметры файлового хранилища.
type Options struct {
	Dir     string
	MaxSize int64
	Naming  string
}

type filesystem struct {
	basePath string
	maxSize  int64
	naming   string
	logger   *zap.SugaredLogger
}

// New создаёт файловое хранилище и каталог под него.
func New(opts Options, logger *zap.SugaredLogger) (System, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("upload dir required")
	}
	absPath, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	naming := opts.Naming
	if naming == "" {
		naming = NamingOriginal
	}
	if naming != NamingOriginal && naming != NamingUUID {
		return nil, fmt.Errorf("unknown naming mode %q", naming)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &filesystem{
		basePath: absPath,
		maxSize:  opts.MaxSize,
		naming:   naming,
		logger:   logger.With("system", "storage"),
	}, nil
}

func (f *filesystem) Dir() string { return f.basePath }

func (f *filesystem) Store(ctx context.Context, up model.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if up.Content == nil {
		return "", fmt.Errorf("%w: empty upload", model.ErrUpload)
	}
	if f.maxSize > 0 && up.Size > f.maxSize {
		return "", model.ErrFileTooLarge
	}

	key, err := f.keyFor(up.Filename)
	if err != nil {
		return "", err
	}
	path, err := f.fullPath(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrUpload, err)
	}

	tmp, err := os.CreateTemp(f.basePath, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", model.ErrUpload, err)
	}
	tmpPath := tmp.Name()

	src := up.Content
	if f.maxSize > 0 {
		src = io.LimitReader(up.Content, f.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	closeErr := tmp.Close()
	switch {
	case err != nil:
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: write file: %v", model.ErrUpload, err)
	case closeErr != nil:
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: close file: %v", model.ErrUpload, closeErr)
	case f.maxSize > 0 && n > f.maxSize:
		os.Remove(tmpPath)
		return "", model.ErrFileTooLarge
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		f.logger.Warnw("chmod upload", "path", tmpPath, "error", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: rename temp file: %v", model.ErrUpload, err)
	}

	f.logger.Infow("upload stored", "file", key, "bytes", n)
	return key, nil
}

func (f *filesystem) Delete(ctx context.Context, key string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (f *filesystem) keyFor(filename string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" || base == ".." || strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("%w: missing file name", model.ErrUpload)
	}
	if f.naming == NamingUUID {
		return uuid.NewString() + strings.ToLower(filepath.Ext(base)), nil
	}
	return base, nil
}

// fullPath resolves a key inside the upload dir; nested paths are not allowed.
func (f *filesystem) fullPath(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := filepath.Clean(key)
	if cleaned != filepath.Base(cleaned) || cleaned == ".." || cleaned == "." {
		return "", ErrInvalidKey
	}
	return filepath.Join(f.basePath, cleaned), nil
}
