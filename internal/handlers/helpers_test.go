package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"SecondChance/internal/config"
	"SecondChance/internal/handlers"
	"SecondChance/internal/middleware"
	"SecondChance/internal/model"
	"SecondChance/internal/repo"
	"SecondChance/internal/service"
	"SecondChance/internal/storage"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const mount = "/api/secondchance/items"

type testEnv struct {
	router    http.Handler
	repo      repo.ItemRepository
	uploadDir string
}

func testConfig(maxUpload int64) *config.Config {
	return &config.Config{MountPath: mount, UploadMaxBytes: maxUpload}
}

// newTestEnv собирает роутер поверх in-memory SQLite и файлового хранилища во временном каталоге.
func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	logger := zap.NewNop().Sugar()
	middleware.SetLogger(logger)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repo.InitDB("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	r := repo.NewSQLItemRepository(db, logger)
	t.Cleanup(func() { _ = r.Close(context.Background()) })

	st, err := storage.New(storage.Options{Dir: filepath.Join(t.TempDir(), "images"), MaxSize: maxUpload}, logger)
	require.NoError(t, err)

	svc := service.NewItemService(r, st, logger)
	h := handlers.NewHandler(svc, st.Dir(), logger, testConfig(maxUpload))
	return &testEnv{router: h.Router, repo: r, uploadDir: st.Dir()}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, strings.NewReader(body), "application/json")
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeItem(t *testing.T, rr *httptest.ResponseRecorder) model.Item {
	t.Helper()
	var it model.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &it), rr.Body.String())
	return it
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var m handlers.MessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return m.Message
}

// failingRepo отвечает ошибкой на любой вызов.
type failingRepo struct {
	mock.Mock
}

func (m *failingRepo) List(ctx context.Context) ([]model.Item, error) {
	return nil, m.Called(ctx).Error(0)
}
func (m *failingRepo) Get(ctx context.Context, id int64) (*model.Item, error) {
	return nil, m.Called(ctx, id).Error(0)
}
func (m *failingRepo) Insert(ctx context.Context, it *model.Item) error {
	return m.Called(ctx, it).Error(0)
}
func (m *failingRepo) Replace(ctx context.Context, it *model.Item) error {
	return m.Called(ctx, it).Error(0)
}
func (m *failingRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *failingRepo) Ping(ctx context.Context) error  { return m.Called(ctx).Error(0) }
func (m *failingRepo) Close(ctx context.Context) error { return m.Called(ctx).Error(0) }

var _ repo.ItemRepository = (*failingRepo)(nil)
