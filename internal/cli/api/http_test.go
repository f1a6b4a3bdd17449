package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListAndGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/items":
			_, _ = w.Write([]byte(`[{"id":1,"name":"chair","createdAt":"2025-01-01T00:00:00Z"}]`))
		case "/items/1":
			_, _ = w.Write([]byte(`{"id":1,"name":"chair","createdAt":"2025-01-01T00:00:00Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Item not found"}`))
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL + "/items/")
	ctx := context.Background()

	items, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "chair", items[0].Name)

	it, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), it.ID)

	_, err = c.Get(ctx, 2)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Item not found", apiErr.Message)
}

func TestClient_CreateMultipart(t *testing.T) {
	img := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o600))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Lamp", r.FormValue("name"))
		f, fh, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "photo.png", fh.Filename)
		assert.Equal(t, "png", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":3,"name":"Lamp","image":"photo.png","createdAt":"2025-01-01T00:00:00Z"}`))
	}))
	defer ts.Close()

	it, err := NewClient(ts.URL).Create(context.Background(), map[string]string{"name": "Lamp"}, img)
	require.NoError(t, err)
	assert.Equal(t, int64(3), it.ID)
	assert.Equal(t, "photo.png", it.Image)

	_, err = NewClient(ts.URL).Create(context.Background(), nil, filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPut:
			var m map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
			assert.Equal(t, float64(730), m["age_days"])
			_, _ = w.Write([]byte(`{"message":"Item updated successfully"}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"store unavailable"}`))
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	msg, err := c.Update(context.Background(), 1, map[string]any{"age_days": 730.0})
	require.NoError(t, err)
	assert.Equal(t, "Item updated successfully", msg)

	_, err = c.Delete(context.Background(), 1)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "store unavailable")
}
