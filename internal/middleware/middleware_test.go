package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRateLimiterRefills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, 2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "buckets are per IP")

	now = now.Add(time.Minute)
	assert.True(t, rl.allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.POST("/run", NewRateLimiter(ctx, 1, time.Minute).Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func compressEngine(body string) *gin.Engine {
	r := gin.New()
	r.Use(Compress())
	r.GET("/data", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/api/stream", func(c *gin.Context) { c.String(http.StatusOK, body) })
	return r
}

func get(r *gin.Engine, path, encoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if encoding != "" {
		req.Header.Set("Accept-Encoding", encoding)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompressLargeBody(t *testing.T) {
	body := strings.Repeat("класс 5а закрыт; ", 200)
	w := get(compressEngine(body), "/data", "gzip, br")

	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))
}

func TestCompressSkips(t *testing.T) {
	large := strings.Repeat("x", 4096)

	w := get(compressEngine("ok"), "/data", "br")
	assert.Empty(t, w.Header().Get("Content-Encoding"), "short bodies stay plain")
	assert.Equal(t, "ok", w.Body.String())

	w = get(compressEngine(large), "/data", "gzip")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())

	w = get(compressEngine(large), "/api/stream", "br")
	assert.Empty(t, w.Header().Get("Content-Encoding"), "event streams pass through")
}
