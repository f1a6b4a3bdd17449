package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { SetLogger(zap.NewNop().Sugar()) })
	return logs
}

// Проверяем, что мидлварь проксирует ответ и пишет одну запись со всеми полями запроса
func TestWithLogging_Fields(t *testing.T) {
	logs := observeLogs(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot) // 418
		_, _ = w.Write([]byte("hello"))
	})
	h := chimw.RequestID(WithLogging(next))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x?y=1", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, http.MethodPost, fields["method"])
	assert.Equal(t, "/x?y=1", fields["uri"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, len("hello"), fields["size"])
	d, ok := fields["duration"].(time.Duration)
	require.True(t, ok, "duration must be logged as a time.Duration")
	assert.GreaterOrEqual(t, d, time.Duration(0))
}

// Хендлер ничего не записал: статус по умолчанию 200, размер 0
func TestWithLogging_DefaultStatus(t *testing.T) {
	logs := observeLogs(t)

	h := WithLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/empty", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.EqualValues(t, 0, fields["size"])
	assert.Equal(t, "", fields["request_id"])
}
