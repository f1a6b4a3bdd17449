package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"SecondChance/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSystem(t *testing.T, naming string, max int64) System {
	t.Helper()
	s, err := New(Options{Dir: filepath.Join(t.TempDir(), "images"), MaxSize: max, Naming: naming}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func upload(name, body string) model.Upload {
	return model.Upload{Filename: name, Size: int64(len(body)), Content: strings.NewReader(body)}
}

func TestStore_OriginalName(t *testing.T) {
	s := newTestSystem(t, NamingOriginal, 0)
	ctx := context.Background()

	key, err := s.Store(ctx, upload("lamp.png", "png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "lamp.png", key)

	data, err := os.ReadFile(filepath.Join(s.Dir(), "lamp.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestStore_StripsDirectories(t *testing.T) {
	s := newTestSystem(t, NamingOriginal, 0)

	key, err := s.Store(context.Background(), upload("../../etc/passwd", "x"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", key)

	key, err = s.Store(context.Background(), upload(`C:\photos\chair.jpg`, "x"))
	require.NoError(t, err)
	assert.Equal(t, "chair.jpg", key)
}

func TestStore_UUIDName(t *testing.T) {
	s := newTestSystem(t, NamingUUID, 0)

	key, err := s.Store(context.Background(), upload("Chair.JPG", "x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.Len(t, key, 36+len(".jpg"))
}

func TestStore_TooLarge(t *testing.T) {
	s := newTestSystem(t, NamingOriginal, 4)

	_, err := s.Store(context.Background(), upload("big.bin", "0123456789"))
	assert.ErrorIs(t, err, model.ErrFileTooLarge)

	// size unknown up front, limit enforced while copying
	_, err = s.Store(context.Background(), model.Upload{Filename: "big.bin", Content: strings.NewReader("0123456789")})
	assert.ErrorIs(t, err, model.ErrFileTooLarge)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_MissingName(t *testing.T) {
	s := newTestSystem(t, NamingOriginal, 0)
	_, err := s.Store(context.Background(), upload("", "x"))
	assert.ErrorIs(t, err, model.ErrUpload)
}

func TestDelete(t *testing.T) {
	s := newTestSystem(t, NamingOriginal, 0)
	ctx := context.Background()

	key, err := s.Store(ctx, upload("a.txt", "a"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(s.Dir(), key))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, key), "delete is idempotent")
	assert.ErrorIs(t, s.Delete(ctx, "../x"), ErrInvalidKey)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrInvalidKey)
}

func TestNew_UnknownNaming(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir(), Naming: "sha"}, zap.NewNop().Sugar())
	assert.Error(t, err)
}
